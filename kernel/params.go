package kernel

import (
	"encoding/binary"
	"math"
)

// UniformSize is the size of every parameter and constant block.
const UniformSize = 16

// BasicParams is the parameter block of the basic kernel.
type BasicParams struct {
	Width, Height uint32
}

// Bytes encodes p as the 16-byte uniform block.
func (p BasicParams) Bytes() []byte {
	b := make([]byte, UniformSize)
	binary.LittleEndian.PutUint32(b[0:], p.Width)
	binary.LittleEndian.PutUint32(b[4:], p.Height)
	return b
}

// DecodeBasicParams decodes a block written by BasicParams.Bytes.
func DecodeBasicParams(b []byte) BasicParams {
	return BasicParams{
		Width:  binary.LittleEndian.Uint32(b[0:]),
		Height: binary.LittleEndian.Uint32(b[4:]),
	}
}

// FieldParams is the parameter block shared by the distance-field kernels:
// {uint32 width; uint32 height; float32 maxDistance; float32 threshold}.
type FieldParams struct {
	Width, Height uint32

	// MaxDistance clamps the signed distance to [-MaxDistance, MaxDistance].
	MaxDistance float32

	// Threshold classifies a pixel as foreground when value >= Threshold.
	Threshold float32
}

// Bytes encodes p as the 16-byte uniform block.
func (p FieldParams) Bytes() []byte {
	b := make([]byte, UniformSize)
	binary.LittleEndian.PutUint32(b[0:], p.Width)
	binary.LittleEndian.PutUint32(b[4:], p.Height)
	binary.LittleEndian.PutUint32(b[8:], math.Float32bits(p.MaxDistance))
	binary.LittleEndian.PutUint32(b[12:], math.Float32bits(p.Threshold))
	return b
}

// DecodeFieldParams decodes a block written by FieldParams.Bytes.
func DecodeFieldParams(b []byte) FieldParams {
	return FieldParams{
		Width:       binary.LittleEndian.Uint32(b[0:]),
		Height:      binary.LittleEndian.Uint32(b[4:]),
		MaxDistance: math.Float32frombits(binary.LittleEndian.Uint32(b[8:])),
		Threshold:   math.Float32frombits(binary.LittleEndian.Uint32(b[12:])),
	}
}

// PassConstants is the root constant of one flood pass.
type PassConstants struct {
	// Step is the step index k; the sampling offset is 1 << k pixels.
	Step uint32
}

// Bytes encodes c as a 16-byte uniform block.
func (c PassConstants) Bytes() []byte {
	b := make([]byte, UniformSize)
	c.Put(b)
	return b
}

// Put writes c into b, which must hold at least UniformSize bytes.
func (c PassConstants) Put(b []byte) {
	binary.LittleEndian.PutUint32(b[0:], c.Step)
	clear(b[4:UniformSize])
}

// DecodePassConstants decodes a block written by PassConstants.Bytes.
func DecodePassConstants(b []byte) PassConstants {
	return PassConstants{Step: binary.LittleEndian.Uint32(b[0:])}
}
