package fetcher

import (
	"archive/tar"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// TarMember describes one file inside a tar archive.
type TarMember struct {
	Name string
	Size int64
}

// ListTar returns the regular-file members of a tar archive.
func ListTar(tarPath string) ([]TarMember, error) {
	file, err := os.Open(tarPath)
	if err != nil {
		return nil, eris.Wrap(err, "tar: open archive")
	}
	defer file.Close() //nolint:errcheck

	var members []TarMember
	tr := tar.NewReader(file)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "tar: read header")
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		members = append(members, TarMember{Name: hdr.Name, Size: hdr.Size})
	}
	return members, nil
}

// ExtractTarMember extracts a single named member to destPath with data-only
// semantics: only regular files are written, and members whose path would
// escape the destination directory are rejected.
func ExtractTarMember(tarPath, memberName, destPath string) error {
	destDir := filepath.Dir(destPath)
	if !memberPathSafe(memberName, destDir) {
		zap.L().Warn("tar: rejecting unsafe member path",
			zap.String("archive", tarPath),
			zap.String("member", memberName),
		)
		return eris.Errorf("tar: illegal member path %q", memberName)
	}

	file, err := os.Open(tarPath)
	if err != nil {
		return eris.Wrap(err, "tar: open archive")
	}
	defer file.Close() //nolint:errcheck

	tr := tar.NewReader(file)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return eris.Wrap(err, "tar: read header")
		}
		if hdr.Name != memberName {
			continue
		}
		if hdr.Typeflag != tar.TypeReg {
			zap.L().Warn("tar: skipping non-regular member",
				zap.String("member", memberName),
				zap.Uint8("typeflag", hdr.Typeflag),
			)
			return eris.Errorf("tar: member %q is not a regular file", memberName)
		}

		if err := os.MkdirAll(destDir, 0o755); err != nil {
			return eris.Wrap(err, "tar: create dest dir")
		}
		out, err := os.Create(destPath)
		if err != nil {
			return eris.Wrap(err, "tar: create file")
		}
		if _, err := io.Copy(out, tr); err != nil {
			_ = out.Close()
			return eris.Wrap(err, "tar: write file")
		}
		return eris.Wrap(out.Close(), "tar: close file")
	}

	return eris.Errorf("tar: member %q not found in %s", memberName, tarPath)
}

// memberPathSafe rejects member names that contain traversal segments, are
// absolute, or would resolve outside destDir.
func memberPathSafe(name, destDir string) bool {
	if strings.HasPrefix(name, "/") || strings.HasPrefix(name, "\\") {
		return false
	}
	cleaned := filepath.Clean(name)
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(os.PathSeparator)) {
		return false
	}
	resolved := filepath.Join(destDir, filepath.Base(cleaned))
	return strings.HasPrefix(filepath.Clean(resolved), filepath.Clean(destDir)+string(os.PathSeparator))
}

// SafeMemberName reports whether a tar member name is safe to extract. Used
// by callers that filter member lists before extraction.
func SafeMemberName(name string) bool {
	if strings.HasPrefix(name, "/") || strings.HasPrefix(name, "\\") {
		return false
	}
	for _, part := range strings.Split(filepath.ToSlash(name), "/") {
		if part == ".." {
			return false
		}
	}
	return true
}
