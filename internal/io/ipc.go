package io

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/lazystore/internal/table"
)

// WriteIPC writes t to w as an Arrow IPC stream
func WriteIPC(w io.Writer, t *table.Table) error {
	mem := memory.NewGoAllocator()
	rec, err := ToRecord(t, mem)
	if err != nil {
		return fmt.Errorf("converting table: %w", err)
	}
	defer rec.Release()

	writer := ipc.NewWriter(w, ipc.WithSchema(rec.Schema()), ipc.WithAllocator(mem))
	if err := writer.Write(rec); err != nil {
		_ = writer.Close()
		return fmt.Errorf("writing record: %w", err)
	}
	return writer.Close()
}

// ReadIPC reads a table from an Arrow IPC stream written by WriteIPC
func ReadIPC(r io.Reader) (*table.Table, error) {
	reader, err := ipc.NewReader(r, ipc.WithAllocator(memory.NewGoAllocator()))
	if err != nil {
		return nil, fmt.Errorf("opening stream: %w", err)
	}
	defer reader.Release()

	b, err := newTableBuilder(reader.Schema())
	if err != nil {
		return nil, err
	}
	for reader.Next() {
		if err := b.add(reader.Record()); err != nil {
			return nil, err
		}
	}
	if err := reader.Err(); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("reading stream: %w", err)
	}
	return b.out, nil
}

// ToBytes serialises t to an Arrow IPC stream
func ToBytes(t *table.Table) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteIPC(&buf, t); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// FromBytes deserialises a table written by ToBytes
func FromBytes(b []byte) (*table.Table, error) {
	return ReadIPC(bytes.NewReader(b))
}
