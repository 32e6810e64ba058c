package wal

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode/utf8"
)

// Ext is the suffix of every log file in the WAL directory.
const Ext = ".wal"

// maxNamePrefix bounds the readable part of a log file name.
const maxNamePrefix = 120

var nameReplacer = strings.NewReplacer("/", "_", "\\", "_", ":", "_")

// FileName maps an absolute source path to its log file name.
//
// The readable prefix replaces separators and volume markers with '_';
// the digest suffix keeps "/a_b" and "/a/b" apart.
func FileName(sourcePath string) string {
	sum := sha256.Sum256([]byte(sourcePath))
	prefix := nameReplacer.Replace(sourcePath)
	if len(prefix) > maxNamePrefix {
		cut := len(prefix) - maxNamePrefix
		for cut < len(prefix) && !utf8.RuneStart(prefix[cut]) {
			cut++
		}
		prefix = prefix[cut:]
	}
	return prefix + "." + hex.EncodeToString(sum[:6]) + Ext
}
