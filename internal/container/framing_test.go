package container

import (
	"testing"

	"github.com/synaptic-terrain/terrainengine/internal/codec"
)

func TestZstdFrameLength_MatchesActualEncodedFrames(t *testing.T) {
	cases := [][]byte{
		{},
		[]byte("a"),
		[]byte("hello world, hello world, hello world"),
		make([]byte, 4096),
	}
	for _, payload := range cases {
		frame, err := codec.EntropyEncode(payload, nil)
		if err != nil {
			t.Fatalf("EntropyEncode: %v", err)
		}
		n, err := zstdFrameLength(frame)
		if err != nil {
			t.Fatalf("zstdFrameLength(%d bytes payload): %v", len(payload), err)
		}
		if n != len(frame) {
			t.Fatalf("zstdFrameLength = %d, want %d (payload %d bytes)", n, len(frame), len(payload))
		}
	}
}

func TestZstdFrameLength_TwoConcatenatedFrames(t *testing.T) {
	f1, err := codec.EntropyEncode([]byte("first tile"), nil)
	if err != nil {
		t.Fatalf("EntropyEncode: %v", err)
	}
	f2, err := codec.EntropyEncode([]byte("second tile, a bit longer than the first one"), nil)
	if err != nil {
		t.Fatalf("EntropyEncode: %v", err)
	}

	concat := append(append([]byte{}, f1...), f2...)
	n1, err := zstdFrameLength(concat)
	if err != nil {
		t.Fatalf("zstdFrameLength first: %v", err)
	}
	if n1 != len(f1) {
		t.Fatalf("first frame length = %d, want %d", n1, len(f1))
	}
	n2, err := zstdFrameLength(concat[n1:])
	if err != nil {
		t.Fatalf("zstdFrameLength second: %v", err)
	}
	if n2 != len(f2) {
		t.Fatalf("second frame length = %d, want %d", n2, len(f2))
	}
}

func TestZstdFrameLength_TruncatedFrame(t *testing.T) {
	frame, err := codec.EntropyEncode([]byte("some data that compresses into at least one block"), nil)
	if err != nil {
		t.Fatalf("EntropyEncode: %v", err)
	}
	_, err = zstdFrameLength(frame[:len(frame)-2])
	if err == nil {
		t.Fatalf("expected error for truncated frame")
	}
}

func TestZstdFrameLength_EmptyInput(t *testing.T) {
	_, err := zstdFrameLength(nil)
	if err == nil {
		t.Fatalf("expected error for empty input")
	}
}
