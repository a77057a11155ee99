package container

import "fmt"

// zstdFrameLength parses just enough of a zstd frame to determine its
// total byte length, without decompressing the payload. data must start
// at the frame header descriptor (the container stores frames with
// their 4-byte magic trimmed, see internal/codec). Used for orphan
// detection and fast-path tile copy, where decoding every tile to find
// its boundary would be wasteful.
func zstdFrameLength(data []byte) (int, error) {
	if len(data) < 1 {
		return 0, fmt.Errorf("%w: empty frame", ErrCorruptFraming)
	}

	descriptor := data[0]
	pos := 1

	frameContentSizeFlag := descriptor >> 6
	singleSegment := descriptor&(1<<5) != 0
	dictionaryIDFlag := descriptor & 0x3

	if !singleSegment {
		if len(data) < pos+1 {
			return 0, fmt.Errorf("%w: truncated window descriptor", ErrCorruptFraming)
		}
		pos++ // Window_Descriptor
	}

	var dictIDSize int
	switch dictionaryIDFlag {
	case 0:
		dictIDSize = 0
	case 1:
		dictIDSize = 1
	case 2:
		dictIDSize = 2
	case 3:
		dictIDSize = 4
	}
	if len(data) < pos+dictIDSize {
		return 0, fmt.Errorf("%w: truncated dictionary ID", ErrCorruptFraming)
	}
	pos += dictIDSize

	var contentSizeFieldSize int
	switch {
	case frameContentSizeFlag == 0 && singleSegment:
		contentSizeFieldSize = 1
	case frameContentSizeFlag == 0:
		contentSizeFieldSize = 0
	case frameContentSizeFlag == 1:
		contentSizeFieldSize = 2
	case frameContentSizeFlag == 2:
		contentSizeFieldSize = 4
	case frameContentSizeFlag == 3:
		contentSizeFieldSize = 8
	}
	if len(data) < pos+contentSizeFieldSize {
		return 0, fmt.Errorf("%w: truncated content size field", ErrCorruptFraming)
	}
	pos += contentSizeFieldSize

	// Data_Block section: walk block headers until Last_Block.
	for {
		if len(data) < pos+3 {
			return 0, fmt.Errorf("%w: truncated block header", ErrCorruptFraming)
		}
		header := uint32(data[pos]) | uint32(data[pos+1])<<8 | uint32(data[pos+2])<<16
		lastBlock := header&1 != 0
		blockType := (header >> 1) & 0x3
		blockSize := int(header >> 3)
		pos += 3

		switch blockType {
		case 0, 1, 2: // Raw, RLE, Compressed
		default:
			return 0, fmt.Errorf("%w: reserved block type %d", ErrCorruptFraming, blockType)
		}

		if blockType == 1 {
			// RLE blocks store a single byte regardless of blockSize.
			if len(data) < pos+1 {
				return 0, fmt.Errorf("%w: truncated RLE block", ErrCorruptFraming)
			}
			pos++
		} else {
			if len(data) < pos+blockSize {
				return 0, fmt.Errorf("%w: truncated block body", ErrCorruptFraming)
			}
			pos += blockSize
		}

		if lastBlock {
			break
		}
	}

	return pos, nil
}
