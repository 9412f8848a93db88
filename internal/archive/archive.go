// Package archive wires the CPK and MPK codecs to a directory tree:
// unpacking an archive into per-entry files named by convention, and
// repacking a directory of such files back into an archive. CRILAYLA
// decompression on extract and the directory naming conventions live here,
// not in the codecs themselves, since neither is part of either wire format.
package archive

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/google/renameio"
	"golang.org/x/xerrors"

	"github.com/mos9527/mages-tools/internal/cpk"
	"github.com/mos9527/mages-tools/internal/crilayla"
	"github.com/mos9527/mages-tools/internal/mpk"
)

const filePerm = 0644

// UnpackCPK extracts every entry of the CPK archive at inPath into outDir,
// one file per entry named by its decimal ID. Entries whose stored size
// differs from their decompressed size are passed through CRILAYLA first.
func UnpackCPK(inPath, outDir string) error {
	data, err := os.ReadFile(inPath)
	if err != nil {
		return xerrors.Errorf("archive: reading %s: %w", inPath, err)
	}
	entries, err := cpk.Unpack(data)
	if err != nil {
		return xerrors.Errorf("archive: unpacking %s: %w", inPath, err)
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return xerrors.Errorf("archive: creating %s: %w", outDir, err)
	}
	for _, e := range entries {
		if e.Offset+e.Size > uint64(len(data)) {
			return xerrors.Errorf("archive: entry %d out of range (offset=%d size=%d file=%d)", e.ID, e.Offset, e.Size, len(data))
		}
		body := data[e.Offset : e.Offset+e.Size]
		out := body
		if e.Compressed() {
			header, payload, err := crilayla.Decompress(body)
			if err != nil {
				return xerrors.Errorf("archive: decompressing entry %d: %w", e.ID, err)
			}
			out = append(header, payload...)
		}
		name := strconv.FormatUint(uint64(e.ID), 10)
		if err := os.WriteFile(filepath.Join(outDir, name), out, filePerm); err != nil {
			return xerrors.Errorf("archive: writing %s: %w", name, err)
		}
	}
	return nil
}

// PackCPK builds a CPK archive from every regular file in inDir (named by
// decimal ID, per UnpackCPK's convention) and atomically writes it to
// outPath.
func PackCPK(inDir, outPath string) error {
	dirEntries, err := os.ReadDir(inDir)
	if err != nil {
		return xerrors.Errorf("archive: reading %s: %w", inDir, err)
	}
	var files []cpk.PackFile
	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		id, err := strconv.ParseUint(de.Name(), 10, 16)
		if err != nil {
			return xerrors.Errorf("archive: %s is not a decimal CPK entry id: %w", de.Name(), err)
		}
		data, err := os.ReadFile(filepath.Join(inDir, de.Name()))
		if err != nil {
			return xerrors.Errorf("archive: reading %s: %w", de.Name(), err)
		}
		files = append(files, cpk.PackFile{ID: uint16(id), Data: data})
	}
	archive, err := cpk.Pack(files)
	if err != nil {
		return xerrors.Errorf("archive: packing %s: %w", outPath, err)
	}
	if err := renameio.WriteFile(outPath, archive, filePerm); err != nil {
		return xerrors.Errorf("archive: writing %s: %w", outPath, err)
	}
	return nil
}

// UnpackMPK extracts every entry of the MPK archive at inPath into outDir,
// one file per entry named "0x<id>_<filename>" per §4.6's convention.
func UnpackMPK(inPath, outDir string) error {
	data, err := os.ReadFile(inPath)
	if err != nil {
		return xerrors.Errorf("archive: reading %s: %w", inPath, err)
	}
	entries, err := mpk.Unpack(data)
	if err != nil {
		return xerrors.Errorf("archive: unpacking %s: %w", inPath, err)
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return xerrors.Errorf("archive: creating %s: %w", outDir, err)
	}
	for _, e := range entries {
		if e.Offset+e.Size > uint64(len(data)) {
			return xerrors.Errorf("archive: entry %d out of range (offset=%d size=%d file=%d)", e.ID, e.Offset, e.Size, len(data))
		}
		body := data[e.Offset : e.Offset+e.Size]
		out := body
		if e.Compressed() {
			header, payload, err := crilayla.Decompress(body)
			if err != nil {
				return xerrors.Errorf("archive: decompressing entry %d: %w", e.ID, err)
			}
			out = append(header, payload...)
		}
		name := "0x" + strconv.FormatUint(uint64(e.ID), 16) + "_" + e.Filename
		if err := os.WriteFile(filepath.Join(outDir, name), out, filePerm); err != nil {
			return xerrors.Errorf("archive: writing %s: %w", name, err)
		}
	}
	return nil
}

// PackMPK builds an MPK archive from every "0x<id>_<filename>" file in
// inDir and atomically writes it to outPath. IDs must be contiguous from
// zero, matching mpk.Pack's invariant.
func PackMPK(inDir, outPath string) error {
	dirEntries, err := os.ReadDir(inDir)
	if err != nil {
		return xerrors.Errorf("archive: reading %s: %w", inDir, err)
	}
	var files []mpk.PackFile
	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		id, name, err := parseMPKFilename(de.Name())
		if err != nil {
			return xerrors.Errorf("archive: %w", err)
		}
		data, err := os.ReadFile(filepath.Join(inDir, de.Name()))
		if err != nil {
			return xerrors.Errorf("archive: reading %s: %w", de.Name(), err)
		}
		files = append(files, mpk.PackFile{ID: id, Filename: name, Data: data})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].ID < files[j].ID })
	archive, err := mpk.Pack(files)
	if err != nil {
		return xerrors.Errorf("archive: packing %s: %w", outPath, err)
	}
	if err := renameio.WriteFile(outPath, archive, filePerm); err != nil {
		return xerrors.Errorf("archive: writing %s: %w", outPath, err)
	}
	return nil
}

// parseMPKFilename splits "0x1e_phone_rine.dds" into its id (30) and
// stored name ("phone_rine.dds").
func parseMPKFilename(s string) (uint32, string, error) {
	rest := strings.TrimPrefix(s, "0x")
	if rest == s {
		return 0, "", xerrors.Errorf("%q is not an MPK entry filename (want 0x<hex id>_<name>)", s)
	}
	idStr, name, ok := strings.Cut(rest, "_")
	if !ok {
		return 0, "", xerrors.Errorf("%q is missing the '_' separator between id and name", s)
	}
	id, err := strconv.ParseUint(idStr, 16, 32)
	if err != nil {
		return 0, "", xerrors.Errorf("%q has a non-hex entry id: %w", s, err)
	}
	return uint32(id), name, nil
}
