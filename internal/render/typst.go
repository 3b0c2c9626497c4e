package render

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dhelbig/korrespondenz/internal/config"
)

// TypstRenderer compiles named typst templates to PDF by shelling out to the
// typst binary. Template data travels through a transient JSON file that is
// removed again whether or not the compile succeeds.
type TypstRenderer struct {
	bin          string
	templatesDir string
	outputDir    string
	cacheDir     string
	timeout      time.Duration
}

func NewTypstRenderer(cfg config.TypstConfig) (*TypstRenderer, error) {
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &TypstRenderer{
		bin:          cfg.Binary,
		templatesDir: cfg.TemplatesDir,
		outputDir:    cfg.OutputDir,
		cacheDir:     cfg.CacheDir,
		timeout:      cfg.Timeout,
	}, nil
}

func (r *TypstRenderer) Render(ctx context.Context, in Input) (string, error) {
	templatePath := filepath.Join(r.templatesDir, in.Kind.templateName())
	if _, err := os.Stat(templatePath); err != nil {
		return "", fmt.Errorf("template %s: %w", in.Kind.templateName(), err)
	}

	outputPath := filepath.Join(r.outputDir, OutputName(in)+".pdf")

	payload, err := json.Marshal(templateData(in))
	if err != nil {
		return "", fmt.Errorf("encode template data: %w", err)
	}

	// Unique per render so concurrent compiles of the same template never
	// clobber each other's data file.
	dataPath := filepath.Join(filepath.Dir(templatePath), fmt.Sprintf("_data_%s.json", uuid.NewString()))
	if err := os.WriteFile(dataPath, payload, 0o644); err != nil {
		return "", fmt.Errorf("write template data: %w", err)
	}
	defer os.Remove(dataPath)

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, r.bin,
		"compile",
		"--root", r.templatesDir,
		"--input", "data="+filepath.Base(dataPath),
		templatePath,
		outputPath,
	)
	cmd.Dir = filepath.Dir(templatePath)
	cmd.Stderr = &stderr
	if r.cacheDir != "" {
		cmd.Env = append(os.Environ(), "TYPST_CACHE_DIR="+r.cacheDir)
	}

	if err := cmd.Run(); err != nil {
		// No partial artifact may survive a failed compile.
		os.Remove(outputPath)

		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s: %v", ErrEngineUnavailable, r.bin, err)
		}
		if ctx.Err() != nil {
			return "", fmt.Errorf("typst compile timed out after %s", r.timeout)
		}
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = err.Error()
		}
		return "", fmt.Errorf("typst compile failed: %s", detail)
	}

	return outputPath, nil
}
