package config

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/paperzip/pkg/domain/model"
	"github.com/pelletier/go-toml/v2"
	"github.com/urfave/cli/v3"
)

// Bundle holds configuration of the bundle command
type Bundle struct {
	Manifest string
	Output   string
}

// Flags returns CLI flags for bundle configuration
func (c *Bundle) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "manifest",
			Aliases:     []string{"m"},
			Usage:       "Batch manifest file (.json or .toml)",
			Required:    true,
			Destination: &c.Manifest,
			Sources:     cli.EnvVars("PAPERZIP_MANIFEST"),
		},
		&cli.StringFlag{
			Name:        "output",
			Aliases:     []string{"o"},
			Usage:       "Output directory or file path of the archive",
			Value:       ".",
			Destination: &c.Output,
			Sources:     cli.EnvVars("PAPERZIP_OUTPUT"),
		},
	}
}

// LoadRequest reads the manifest file as a batch request
func (c *Bundle) LoadRequest() (*model.BatchRequest, error) {
	data, err := os.ReadFile(c.Manifest)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read manifest", goerr.V("path", c.Manifest))
	}

	var req model.BatchRequest
	switch strings.ToLower(filepath.Ext(c.Manifest)) {
	case ".toml":
		if err := toml.Unmarshal(data, &req); err != nil {
			return nil, goerr.Wrap(err, "failed to parse TOML manifest", goerr.V("path", c.Manifest))
		}
	default:
		decoder := json.NewDecoder(bytes.NewReader(data))
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&req); err != nil {
			return nil, goerr.Wrap(err, "failed to parse JSON manifest", goerr.V("path", c.Manifest))
		}
	}

	return &req, nil
}

// OutputPath returns where the archive named archiveName is written. When
// Output is an existing directory the archive is placed into it. Path
// separators in archiveName are replaced so the archive never leaves the
// output directory.
func (c *Bundle) OutputPath(archiveName string) string {
	name := archiveFileName(archiveName)
	if c.Output == "" {
		return name
	}
	if st, err := os.Stat(c.Output); err == nil && st.IsDir() {
		return filepath.Join(c.Output, name)
	}
	return c.Output
}

func archiveFileName(name string) string {
	name = strings.NewReplacer("/", "_", `\`, "_").Replace(name)
	switch name {
	case "", ".", "..":
		return "_" + name
	}
	return name
}
