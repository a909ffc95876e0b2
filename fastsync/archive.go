// Copyright 2026 The BNS Authors
// SPDX-License-Identifier: Apache-2.0

package fastsync

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/blake3"
)

// Export archives dataDir into a zstd-compressed tar at archivePath
// and returns an unsigned manifest for it. Chain identity fields
// (network, tip, consensus hash) are the caller's to fill in; see
// ExportNode for the usual wiring.
//
// The source node must be quiesced: archiving a database mid-write
// produces a snapshot no importer can use.
func Export(dataDir, archivePath string) (*Manifest, error) {
	out, err := os.Create(archivePath)
	if err != nil {
		return nil, fmt.Errorf("fastsync: creating archive: %w", err)
	}
	defer out.Close()

	hasher := blake3.New()
	compressor, err := zstd.NewWriter(io.MultiWriter(out, hasher),
		zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("fastsync: zstd writer: %w", err)
	}
	archive := tar.NewWriter(compressor)

	walkErr := filepath.WalkDir(dataDir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		relative, err := filepath.Rel(dataDir, path)
		if err != nil {
			return err
		}
		if relative == "." {
			return nil
		}

		info, err := entry.Info()
		if err != nil {
			return err
		}
		header, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		header.Name = filepath.ToSlash(relative)
		if err := archive.WriteHeader(header); err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}

		file, err := os.Open(path)
		if err != nil {
			return err
		}
		defer file.Close()
		_, err = io.Copy(archive, file)
		return err
	})
	if walkErr != nil {
		return nil, fmt.Errorf("fastsync: archiving %s: %w", dataDir, walkErr)
	}

	if err := archive.Close(); err != nil {
		return nil, fmt.Errorf("fastsync: finalizing tar: %w", err)
	}
	if err := compressor.Close(); err != nil {
		return nil, fmt.Errorf("fastsync: finalizing zstd: %w", err)
	}
	if err := out.Close(); err != nil {
		return nil, fmt.Errorf("fastsync: closing archive: %w", err)
	}

	stat, err := os.Stat(archivePath)
	if err != nil {
		return nil, fmt.Errorf("fastsync: stat archive: %w", err)
	}

	var digest [32]byte
	copy(digest[:], hasher.Sum(nil))
	return &Manifest{
		FormatVersion: FormatVersion,
		Digest:        fmt.Sprintf("%x", digest),
		ArchiveSize:   stat.Size(),
		CreatedAt:     time.Now().Unix(),
	}, nil
}

// Import verifies a snapshot archive against its manifest and unpacks
// it into targetDir. The manifest's signatures must already have been
// checked with Manifest.Verify; Import re-checks only the archive
// digest. The target directory must be empty or absent: an import
// never merges over existing state.
func Import(archivePath string, manifest *Manifest, targetDir string) error {
	if err := ensureEmptyDir(targetDir); err != nil {
		return err
	}
	if err := verifyDigest(archivePath, manifest); err != nil {
		return err
	}

	in, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("fastsync: opening archive: %w", err)
	}
	defer in.Close()

	decompressor, err := zstd.NewReader(in)
	if err != nil {
		return fmt.Errorf("fastsync: zstd reader: %w", err)
	}
	defer decompressor.Close()

	archive := tar.NewReader(decompressor)
	for {
		header, err := archive.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("fastsync: reading archive: %w", err)
		}

		path, err := securePath(targetDir, header.Name)
		if err != nil {
			return err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(path, 0755); err != nil {
				return fmt.Errorf("fastsync: creating directory: %w", err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				return fmt.Errorf("fastsync: creating directory: %w", err)
			}
			file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, fs.FileMode(header.Mode)&0777)
			if err != nil {
				return fmt.Errorf("fastsync: creating file: %w", err)
			}
			if _, err := io.Copy(file, archive); err != nil {
				file.Close()
				return fmt.Errorf("fastsync: extracting %s: %w", header.Name, err)
			}
			if err := file.Close(); err != nil {
				return fmt.Errorf("fastsync: closing %s: %w", header.Name, err)
			}
		default:
			return fmt.Errorf("fastsync: archive entry %s has unsupported type %d", header.Name, header.Typeflag)
		}
	}
}

// verifyDigest hashes the archive file and compares it to the
// manifest's digest.
func verifyDigest(archivePath string, manifest *Manifest) error {
	in, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("fastsync: opening archive: %w", err)
	}
	defer in.Close()

	hasher := blake3.New()
	if _, err := io.Copy(hasher, in); err != nil {
		return fmt.Errorf("fastsync: hashing archive: %w", err)
	}
	digest := fmt.Sprintf("%x", hasher.Sum(nil))
	if digest != manifest.Digest {
		return fmt.Errorf("fastsync: archive digest %s does not match manifest %s", digest, manifest.Digest)
	}
	return nil
}

func ensureEmptyDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return os.MkdirAll(dir, 0755)
	}
	if err != nil {
		return fmt.Errorf("fastsync: reading target directory: %w", err)
	}
	if len(entries) > 0 {
		return fmt.Errorf("fastsync: target directory %s is not empty", dir)
	}
	return nil
}

// securePath resolves an archive entry name under targetDir, rejecting
// absolute names and parent traversal.
func securePath(targetDir, name string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("fastsync: archive entry %q escapes the target directory", name)
	}
	return filepath.Join(targetDir, cleaned), nil
}
