// Package bin holds the little-endian integer helpers shared by the codecs.
package bin

import (
	"bytes"
	"encoding/binary"
)

func PutU16(b *bytes.Buffer, v uint16) error { return binary.Write(b, binary.LittleEndian, v) }
func PutU32(b *bytes.Buffer, v uint32) error { return binary.Write(b, binary.LittleEndian, v) }

func GetU16(r *bytes.Reader) (uint16, error) {
	var v uint16
	err := binary.Read(r, binary.LittleEndian, &v)
	return v, err
}
func GetU32(r *bytes.Reader) (uint32, error) {
	var v uint32
	err := binary.Read(r, binary.LittleEndian, &v)
	return v, err
}
