// Package testutil provides fixtures shared by the service and CLI tests.
package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/storage-analysis/internal/prefix"
	"github.com/storage-analysis/internal/queue"
	"github.com/storage-analysis/internal/schema"
	"github.com/storage-analysis/internal/source"
)

// AliceHex is the account id of the well-known development key Alice.
const AliceHex = "0xd43593c715fdd31c61141abd04a99fd6822c8558854ccde39a5684e7a56da27d"

// Alice is AliceHex as bytes.
var Alice = [32]byte{0xd4, 0x35, 0x93, 0xc7, 0x15, 0xfd, 0xd3, 0x1c, 0x61, 0x14, 0x1a, 0xbd, 0x04, 0xa9, 0x9f, 0xd6,
	0x82, 0x2c, 0x85, 0x58, 0x85, 0x4c, 0xcd, 0xe3, 0x9a, 0x56, 0x84, 0xe7, 0xa5, 0x6d, 0xa2, 0x7d}

// SchemaYAML is Schema as a schema file.
const SchemaYAML = `network: polkadot
categories:
  - name: System
    items:
      - name: Account
      - name: Number
  - name: Balances
    items:
      - name: TotalIssuance
`

// Schema returns a small two-pallet schema.
func Schema() schema.Static {
	return schema.Static{
		{Name: "System", Items: []schema.Item{{Name: "Account"}, {Name: "Number"}}},
		{Name: "Balances", Items: []schema.Item{{Name: "TotalIssuance"}}},
	}
}

// Records returns three records over Schema: Alice's System::Account entry,
// Balances::TotalIssuance, and an unknown key whose value embeds Alice.
func Records() []queue.Record {
	account := append(prefix.ItemPrefix("System", "Account"), Alice[:]...)
	unknownValue := append([]byte{0x01, 0x02}, Alice[:]...)
	return []queue.Record{
		{Key: account, Value: bytes.Repeat([]byte{0x07}, 100)},
		{Key: prefix.ItemPrefix("Balances", "TotalIssuance"), Value: make([]byte, 16)},
		{Key: []byte{0xff, 0xee}, Value: unknownValue},
	}
}

// WriteSnapshot encodes records as a snapshot file named name in dir.
func WriteSnapshot(t *testing.T, dir, name string, records []queue.Record) string {
	t.Helper()
	var buf bytes.Buffer
	if err := source.WriteSnapshot(&buf, records); err != nil {
		t.Fatalf("failed to encode snapshot: %v", err)
	}
	return WriteFile(t, dir, name, buf.String())
}

// WriteFile writes content to a file in the given directory.
func WriteFile(t *testing.T, dir, filename, content string) string {
	t.Helper()
	path := filepath.Join(dir, filename)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	return path
}
