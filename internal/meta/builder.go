// Package meta generates per-video upload metadata from configurable
// templates, per-folder overrides, and container metadata probed from the
// file itself.
package meta

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/bulktube/bulktube/internal/youtube"
)

// maxTitleLen is the platform's title length limit.
const maxTitleLen = 100

// overrideFileName is the per-folder template override file.
const overrideFileName = "bulktube.toml"

// dateUnknown is substituted for {date} when no capture time is available.
const dateUnknown = "Unknown"

// Templates carries the three template fields shared by global config and
// folder overrides.
type Templates struct {
	TitleTemplate       string   `toml:"title_template"`
	DescriptionTemplate string   `toml:"description_template"`
	Tags                []string `toml:"tags"`
}

// folderOverride is the bulktube.toml schema. Empty fields inherit the
// global template; ExtraTags append instead of replacing.
type folderOverride struct {
	Templates
	ExtraTags []string `toml:"extra_tags"`
}

// Builder turns a video file into the metadata document sent at upload time.
// Safe for concurrent use: all fields are immutable after construction.
type Builder struct {
	templates Templates
	privacy   string
	logger    *slog.Logger
}

// NewBuilder creates a Builder with the given global templates and privacy
// status for new videos.
func NewBuilder(templates Templates, privacy string, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}

	return &Builder{
		templates: templates,
		privacy:   privacy,
		logger:    logger,
	}
}

// Generate builds the upload metadata for path. index and total are the
// file's 1-based position within its folder batch, name-sorted, so "No. 3/12"
// stays stable across runs.
func (b *Builder) Generate(path string, index, total int) *youtube.VideoMetadata {
	folder := filepath.Base(filepath.Dir(path))
	filename := filepath.Base(path)
	stem := strings.TrimSuffix(filename, filepath.Ext(filename))

	captured, err := ProbeCreationTime(path)
	if err != nil {
		b.logger.Debug("creation time probe failed", "path", path, "error", err.Error())
	}

	gps, err := ScanGPS(path)
	if err != nil {
		b.logger.Debug("gps scan failed", "path", path, "error", err.Error())
	}

	vars := map[string]string{
		"folder":   folder,
		"stem":     stem,
		"filename": filename,
		"date":     dateUnknown,
		"year":     "",
		"index":    strconv.Itoa(index),
		"total":    strconv.Itoa(total),
	}

	if !captured.IsZero() {
		vars["date"] = captured.Format("2006-01-02")
		vars["year"] = captured.Format("2006")
	}

	tmpl := b.resolveTemplates(filepath.Dir(path))

	title, err := expand(tmpl.TitleTemplate, vars)
	if err != nil {
		b.logger.Warn("title template failed, using fallback",
			"path", path, "error", err.Error())

		title = fmt.Sprintf("%s - %s", folder, stem)
	}

	description, err := expand(tmpl.DescriptionTemplate, vars)
	if err != nil {
		b.logger.Warn("description template failed, using fallback",
			"path", path, "error", err.Error())

		description = filename
	}

	meta := &youtube.VideoMetadata{
		Snippet: &youtube.Snippet{
			Title:       truncateTitle(title),
			Description: description,
			Tags:        buildTags(tmpl.Tags, folder, vars["year"]),
		},
		Status: &youtube.Status{PrivacyStatus: b.privacy},
	}

	details := &youtube.RecordingDetails{}

	if !captured.IsZero() {
		details.RecordingDate = captured.UTC().Format(time.RFC3339)
	}

	if gps != nil {
		details.Location = &youtube.GeoPoint{
			Latitude:  gps.Latitude,
			Longitude: gps.Longitude,
			Altitude:  gps.Altitude,
		}
	}

	if details.RecordingDate != "" || details.Location != nil {
		meta.RecordingDetails = details
	}

	return meta
}

// resolveTemplates merges the folder's bulktube.toml over the global
// templates. A missing or unreadable override file selects the globals
// unchanged; a malformed one is logged and ignored.
func (b *Builder) resolveTemplates(dir string) Templates {
	out := b.templates

	path := filepath.Join(dir, overrideFileName)

	var ov folderOverride
	if _, err := toml.DecodeFile(path, &ov); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			b.logger.Warn("ignoring malformed folder override",
				"path", path, "error", err.Error())
		}

		return out
	}

	if ov.TitleTemplate != "" {
		out.TitleTemplate = ov.TitleTemplate
	}

	if ov.DescriptionTemplate != "" {
		out.DescriptionTemplate = ov.DescriptionTemplate
	}

	if len(ov.Tags) > 0 {
		out.Tags = ov.Tags
	}

	out.Tags = slices.Clone(out.Tags)

	for _, t := range ov.ExtraTags {
		if !slices.Contains(out.Tags, t) {
			out.Tags = append(out.Tags, t)
		}
	}

	return out
}

// buildTags appends the folder name and capture year to the template tags
// when missing, deduplicated, order preserved.
func buildTags(base []string, folder, year string) []string {
	tags := slices.Clone(base)

	for _, extra := range []string{folder, year} {
		if extra != "" && !slices.Contains(tags, extra) {
			tags = append(tags, extra)
		}
	}

	return tags
}

// truncateTitle enforces the title length limit, rune-aware, with a trailing
// ellipsis marking the cut.
func truncateTitle(title string) string {
	runes := []rune(title)
	if len(runes) <= maxTitleLen {
		return title
	}

	return string(runes[:maxTitleLen-3]) + "..."
}

// MetadataJSON renders the metadata document as the JSON blob stored in the
// history row. Best-effort: encoding failures yield an empty blob, never an
// aborted upload.
func MetadataJSON(meta *youtube.VideoMetadata) string {
	if meta == nil {
		return ""
	}

	data, err := json.Marshal(meta)
	if err != nil {
		return ""
	}

	return string(data)
}
