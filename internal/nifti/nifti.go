// Package nifti reads NIfTI-1 headers. The tool treats image data as
// opaque, but the workflow builder needs two header fields: the number of
// volumes for the FEAT design and the pixdim repetition time as a fallback
// when no BIDS sidecar declares one.
//
// Field layout follows the official nifti1.h definition,
// https://nifti.nimh.nih.gov/pub/dist/src/niftilib/nifti1.h
package nifti

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// headerSize is the fixed byte size of a NIfTI-1 header.
const headerSize = 348

// Header is the NIfTI-1 header, 348 bytes on disk.
type Header struct {
	SizeOfHdr          int32
	UnusedDataType     [10]int8
	UnusedDbName       [18]int8
	UnusedExtents      int32
	UnusedSessionError int16
	UnusedRegular      int8
	DimInfo            int8

	Dim           [8]int16
	IntentP1      float32
	IntentP2      float32
	IntentP3      float32
	IntentCode    int16
	DataType      int16
	BitPix        int16
	SliceStart    int16
	PixDim        [8]float32
	VoxOffset     float32
	SclSlope      float32
	SclInter      float32
	SliceEnd      int16
	SliceCode     int8
	XYZTUnits     int8
	CalMax        float32
	CalMin        float32
	SliceDuration float32
	TOffset       float32
	UnusedGlmax   int32
	UnusedGlmin   int32

	Descrip [80]int8
	AuxFile [24]int8

	QFormCode int16
	SFormCode int16

	QuaternB float32
	QuaternC float32
	QuaternD float32
	QOffsetX float32
	QOffsetY float32
	QOffsetZ float32

	SRowX [4]float32
	SRowY [4]float32
	SRowZ [4]float32

	IntentName [16]int8
	Magic      [4]int8
}

// ReadHeader reads the header of a .nii or .nii.gz file. Byte order is
// detected from the sizeof_hdr field.
func ReadHeader(path string) (*Header, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open NIfTI file")
	}
	defer file.Close()

	var reader io.Reader = file
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(file)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to decompress %s", path)
		}
		defer gz.Close()
		reader = gz
	}

	raw := make([]byte, headerSize)
	if _, err := io.ReadFull(reader, raw); err != nil {
		return nil, errors.Wrapf(err, "failed to read NIfTI header from %s", path)
	}
	return decode(raw, path)
}

func decode(raw []byte, path string) (*Header, error) {
	var header Header
	for _, order := range []binary.ByteOrder{binary.LittleEndian, binary.BigEndian} {
		if err := binary.Read(bytes.NewReader(raw), order, &header); err != nil {
			return nil, errors.Wrapf(err, "failed to decode NIfTI header from %s", path)
		}
		if header.SizeOfHdr == headerSize {
			return &header, nil
		}
	}
	return nil, errors.Errorf("%s is not a NIfTI-1 file: sizeof_hdr != %d in either byte order", path, headerSize)
}

// Volumes returns the length of the time axis. Spatial-only images report 1.
func (h *Header) Volumes() int {
	if h.Dim[0] < 4 || h.Dim[4] < 1 {
		return 1
	}
	return int(h.Dim[4])
}

// Time unit codes from nifti1.h, stored in the upper bits of xyzt_units.
const (
	timeUnitsMask = 0x38
	unitsMsec     = 0x10
	unitsUsec     = 0x18
)

// RepetitionTime returns pixdim[4] converted to seconds per the header's
// declared time units, or zero when the header does not carry a usable
// value. An undeclared unit is read as seconds.
func (h *Header) RepetitionTime() float64 {
	if h.Dim[0] < 4 || h.PixDim[4] <= 0 {
		return 0
	}
	tr := float64(h.PixDim[4])
	switch h.XYZTUnits & timeUnitsMask {
	case unitsMsec:
		tr /= 1e3
	case unitsUsec:
		tr /= 1e6
	}
	return tr
}
