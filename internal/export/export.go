// Package export writes stored analysis reports to portable bundle files.
//
// A bundle is a tar archive compressed with XZ. It contains a
// manifest.json describing the bundle followed by one
// reports/<id>.json entry per stored analysis.
package export

import (
	"archive/tar"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"github.com/ulikunitz/xz"

	"github.com/circuitlens/circuitlens/internal/store"
)

// Manifest describes a bundle's contents.
type Manifest struct {
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
	Count     int       `json:"count"`
}

const manifestVersion = 1

// Bundle holds the decoded contents of a bundle file.
type Bundle struct {
	Manifest Manifest
	Records  []store.Record
}

// Write bundles up to limit recent records from st into a tar.xz file
// at outPath. It returns the number of records written.
func Write(ctx context.Context, st *store.Store, outPath string, limit int) (int, error) {
	records, err := st.Recent(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("load records: %w", err)
	}

	file, err := os.Create(outPath)
	if err != nil {
		return 0, fmt.Errorf("create bundle: %w", err)
	}
	defer file.Close()

	xzWriter, err := xz.NewWriter(file)
	if err != nil {
		return 0, fmt.Errorf("create xz writer: %w", err)
	}
	defer xzWriter.Close()

	tarWriter := tar.NewWriter(xzWriter)
	defer tarWriter.Close()

	manifest := Manifest{
		Version:   manifestVersion,
		CreatedAt: time.Now().UTC(),
		Count:     len(records),
	}
	manifestData, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("serialize manifest: %w", err)
	}
	if err := writeEntry(tarWriter, "manifest.json", manifestData); err != nil {
		return 0, fmt.Errorf("write manifest: %w", err)
	}

	for _, rec := range records {
		data, err := json.MarshalIndent(rec, "", "  ")
		if err != nil {
			return 0, fmt.Errorf("serialize record %s: %w", rec.ID, err)
		}
		name := path.Join("reports", rec.ID+".json")
		if err := writeEntry(tarWriter, name, data); err != nil {
			return 0, fmt.Errorf("write record %s: %w", rec.ID, err)
		}
	}

	return len(records), nil
}

// Read decodes a bundle file written by Write.
func Read(bundlePath string) (*Bundle, error) {
	file, err := os.Open(bundlePath)
	if err != nil {
		return nil, fmt.Errorf("open bundle: %w", err)
	}
	defer file.Close()

	xzReader, err := xz.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("create xz reader: %w", err)
	}

	bundle := &Bundle{}
	tarReader := tar.NewReader(xzReader)
	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read bundle entry: %w", err)
		}

		data, err := io.ReadAll(tarReader)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", header.Name, err)
		}

		switch {
		case header.Name == "manifest.json":
			if err := json.Unmarshal(data, &bundle.Manifest); err != nil {
				return nil, fmt.Errorf("decode manifest: %w", err)
			}
		case strings.HasPrefix(header.Name, "reports/"):
			var rec store.Record
			if err := json.Unmarshal(data, &rec); err != nil {
				return nil, fmt.Errorf("decode %s: %w", header.Name, err)
			}
			bundle.Records = append(bundle.Records, rec)
		}
	}

	if bundle.Manifest.Version == 0 {
		return nil, fmt.Errorf("bundle has no manifest")
	}
	return bundle, nil
}

func writeEntry(tw *tar.Writer, name string, data []byte) error {
	header := &tar.Header{
		Name: name,
		Mode: 0644,
		Size: int64(len(data)),
	}
	if err := tw.WriteHeader(header); err != nil {
		return err
	}
	_, err := tw.Write(data)
	return err
}
