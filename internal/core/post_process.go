package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"mamarr/internal/clients/torrent"
	"mamarr/internal/models"
	"mamarr/internal/utils"
)

// ErrPostProcessing is returned when a finished download cannot be turned
// into a library entry.
var ErrPostProcessing = errors.New("post-processing failed")

var audioExtensions = map[string]bool{
	".mp3":  true,
	".m4b":  true,
	".m4a":  true,
	".flac": true,
	".aac":  true,
	".ogg":  true,
	".wav":  true,
	".opus": true,
}

// PostProcessor moves finished downloads into the library, optionally
// merging multi-file audiobooks into a single m4b via ffmpeg.
type PostProcessor struct {
	outputDir    string
	tmpDir       string
	mergeEnabled bool
	ffmpegPath   string
	httpClient   *http.Client
	logger       *utils.Logger
}

func NewPostProcessor(outputDir, tmpDir string, enableMerge bool, logger *utils.Logger) *PostProcessor {
	ffmpegPath, err := exec.LookPath("ffmpeg")
	if err != nil {
		if enableMerge {
			logger.Warn("PostProcessor: ffmpeg not found, merge and tagging disabled")
		}
		ffmpegPath = ""
	}
	return &PostProcessor{
		outputDir:    outputDir,
		tmpDir:       tmpDir,
		mergeEnabled: enableMerge,
		ffmpegPath:   ffmpegPath,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		logger:       logger,
	}
}

// bookMetadata carries the tag fields recovered from the raw tracker record.
// The json tags are the sidecar layout.
type bookMetadata struct {
	Title       string   `json:"title"`
	Authors     []string `json:"authors"`
	Narrators   []string `json:"narrators"`
	Series      string   `json:"series,omitempty"`
	ASIN        string   `json:"asin,omitempty"`
	Description string   `json:"description,omitempty"`
	PublishDate string   `json:"publishDate,omitempty"`
	CoverURL    string   `json:"cover,omitempty"`
}

func (m bookMetadata) displayName() string {
	if m.Title == "" {
		return ""
	}
	if len(m.Authors) > 0 {
		return m.Authors[0] + " - " + m.Title
	}
	return m.Title
}

// Process turns a completed torrent into a library entry and returns the
// destination path: a directory for copied trees, a single file for one-file
// or merged audio.
func (p *PostProcessor) Process(job models.DownloadJob, snapshot torrent.Snapshot) (string, error) {
	meta := extractMetadata(job)

	if snapshot.DownloadDir == "" || snapshot.Name == "" {
		return "", fmt.Errorf("%w: torrent snapshot has no download location", ErrPostProcessing)
	}
	source := filepath.Join(snapshot.DownloadDir, snapshot.Name)
	sourceInfo, err := os.Stat(source)
	if err != nil {
		return "", fmt.Errorf("%w: source path %s: %v", ErrPostProcessing, source, err)
	}

	name := meta.displayName()
	if name == "" {
		name = snapshot.Name
	}
	if name == "" {
		name = job.GUID
	}
	if meta.Title == "" {
		meta.Title = name
	}

	audioFiles := p.gatherAudioFiles(snapshot, source)

	dest := filepath.Join(p.outputDir, utils.SanitizeName(name))
	if _, err := os.Stat(dest); err == nil {
		dest = dest + "_" + shortID(job.ID)
	}

	switch {
	case len(audioFiles) == 0:
		p.logger.Warn("PostProcessor: no audio files found in", source, ", copying as-is")
		if err := p.copyAny(source, sourceInfo.IsDir(), dest); err != nil {
			return "", err
		}
		return dest, nil
	case len(audioFiles) == 1:
		dest += strings.ToLower(filepath.Ext(audioFiles[0]))
		if err := copyFile(audioFiles[0], dest); err != nil {
			return "", fmt.Errorf("%w: %v", ErrPostProcessing, err)
		}
		p.tagFile(dest, meta)
	case p.mergeEnabled && p.ffmpegPath != "":
		dest += ".m4b"
		if err := p.mergeFiles(audioFiles, dest, meta); err != nil {
			return "", err
		}
	default:
		if err := p.copyAny(source, sourceInfo.IsDir(), dest); err != nil {
			return "", err
		}
		p.tagInPlace(dest, meta)
	}

	p.writeSidecar(dest, meta)
	p.logger.Info("PostProcessor: finished, output at", dest)
	return dest, nil
}

// gatherAudioFiles resolves the snapshot's file list against the source
// directory and returns existing audio files in name order, which is the
// chapter order for virtually all audiobook rips.
func (p *PostProcessor) gatherAudioFiles(snapshot torrent.Snapshot, source string) []string {
	var files []string
	for _, file := range snapshot.Files {
		if !audioExtensions[strings.ToLower(filepath.Ext(file.Name))] {
			continue
		}
		path := filepath.Join(snapshot.DownloadDir, file.Name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		files = append(files, path)
	}
	if len(files) == 0 {
		// client did not report files, walk the source instead
		filepath.Walk(source, func(path string, info os.FileInfo, err error) error {
			if err != nil || info.IsDir() {
				return nil
			}
			if audioExtensions[strings.ToLower(filepath.Ext(path))] {
				files = append(files, path)
			}
			return nil
		})
	}
	sort.Strings(files)
	return files
}

// mergeFiles concatenates the ordered audio files into the target container
// using ffmpeg's concat demuxer. Streams are copied, never re-encoded; the
// book tags ride along in the same pass.
func (p *PostProcessor) mergeFiles(files []string, target string, meta bookMetadata) error {
	workDir, err := os.MkdirTemp(p.tmpDir, "merge_")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPostProcessing, err)
	}
	defer os.RemoveAll(workDir)

	listPath := filepath.Join(workDir, "concat.txt")
	var list strings.Builder
	for _, file := range files {
		list.WriteString("file '" + strings.ReplaceAll(file, "'", "'\\''") + "'\n")
	}
	if err := os.WriteFile(listPath, []byte(list.String()), 0o644); err != nil {
		return fmt.Errorf("%w: %v", ErrPostProcessing, err)
	}

	args := []string{
		"-y", "-f", "concat", "-safe", "0", "-i", listPath,
		"-c", "copy",
	}
	args = append(args, tagArgs(meta)...)
	args = append(args, target)

	p.logger.Info("PostProcessor: merging", len(files), "files into", target)
	cmd := exec.Command(p.ffmpegPath, args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%w: ffmpeg merge: %v: %s", ErrPostProcessing, err, tail(string(output)))
	}

	p.attachCover(target, meta)
	return nil
}

// tagFile remuxes a single file in place to apply tags. Failures are logged
// and ignored, the untagged file is still a valid library entry.
func (p *PostProcessor) tagFile(path string, meta bookMetadata) {
	if p.ffmpegPath == "" {
		return
	}
	tagged := path + ".tagged" + filepath.Ext(path)
	args := []string{"-y", "-i", path, "-c", "copy"}
	args = append(args, tagArgs(meta)...)
	args = append(args, tagged)

	cmd := exec.Command(p.ffmpegPath, args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		p.logger.Warn("PostProcessor: tagging failed for", path, ":", err, tail(string(output)))
		os.Remove(tagged)
		return
	}
	if err := os.Rename(tagged, path); err != nil {
		p.logger.Warn("PostProcessor: could not replace tagged file:", err)
		os.Remove(tagged)
		return
	}
	p.attachCover(path, meta)
}

func (p *PostProcessor) tagInPlace(dest string, meta bookMetadata) {
	filepath.Walk(dest, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		if audioExtensions[strings.ToLower(filepath.Ext(path))] {
			p.tagFile(path, meta)
		}
		return nil
	})
}

// attachCover downloads the cover image and muxes it in as attached art.
// Best effort only.
func (p *PostProcessor) attachCover(path string, meta bookMetadata) {
	if p.ffmpegPath == "" || meta.CoverURL == "" {
		return
	}
	resp, err := p.httpClient.Get(meta.CoverURL)
	if err != nil || resp.StatusCode != http.StatusOK {
		if resp != nil {
			resp.Body.Close()
		}
		p.logger.Warn("PostProcessor: cover download failed for", meta.CoverURL)
		return
	}
	defer resp.Body.Close()

	coverPath := path + ".cover.jpg"
	coverFile, err := os.Create(coverPath)
	if err != nil {
		return
	}
	io.Copy(coverFile, resp.Body)
	coverFile.Close()
	defer os.Remove(coverPath)

	withCover := path + ".art" + filepath.Ext(path)
	cmd := exec.Command(p.ffmpegPath,
		"-y", "-i", path, "-i", coverPath,
		"-map", "0:a", "-map", "1", "-c", "copy",
		"-disposition:v:0", "attached_pic", withCover)
	if output, err := cmd.CombinedOutput(); err != nil {
		p.logger.Warn("PostProcessor: cover attach failed:", err, tail(string(output)))
		os.Remove(withCover)
		return
	}
	if err := os.Rename(withCover, path); err != nil {
		os.Remove(withCover)
	}
}

// writeSidecar drops the metadata JSON next to a file output or inside a
// directory output.
func (p *PostProcessor) writeSidecar(dest string, meta bookMetadata) {
	path := dest + ".metadata.json"
	if info, err := os.Stat(dest); err == nil && info.IsDir() {
		path = filepath.Join(dest, "metadata.json")
	}
	payload, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		p.logger.Warn("PostProcessor: could not write metadata sidecar:", err)
	}
}

// copyAny mirrors the source verbatim, file or directory.
func (p *PostProcessor) copyAny(source string, isDir bool, dest string) error {
	if isDir {
		return p.copyTree(source, dest)
	}
	if err := copyFile(source, dest); err != nil {
		return fmt.Errorf("%w: %v", ErrPostProcessing, err)
	}
	return nil
}

func (p *PostProcessor) copyTree(source, dest string) error {
	return filepath.Walk(source, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return fmt.Errorf("%w: %v", ErrPostProcessing, err)
		}
		rel, err := filepath.Rel(source, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dest, rel)
		if info.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		if err := copyFile(path, target); err != nil {
			return fmt.Errorf("%w: %v", ErrPostProcessing, err)
		}
		return nil
	})
}

func copyFile(source, dest string) error {
	in, err := os.Open(source)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}

// extractMetadata recovers book tags from the raw tracker record stored on
// the job. The tracker serializes people fields three different ways, a
// JSON-object string, a list, or a plain string.
func extractMetadata(job models.DownloadJob) bookMetadata {
	meta := bookMetadata{
		Title:       job.Release.Title,
		PublishDate: job.Release.PublishDate,
	}
	if job.Source == nil {
		return meta
	}

	if meta.Title == "" {
		if title, ok := job.Source["title"].(string); ok {
			meta.Title = strings.TrimSpace(title)
		}
	}
	meta.Authors = parsePeople(job.Source["author_info"])
	meta.Narrators = parsePeople(job.Source["narrator_info"])
	if series, ok := job.Source["series"].(string); ok {
		meta.Series = series
	}
	if asin, ok := job.Source["asin"].(string); ok {
		meta.ASIN = asin
	}
	for _, key := range []string{"description", "desc"} {
		if value, ok := job.Source[key].(string); ok && value != "" {
			meta.Description = value
			break
		}
	}
	for _, key := range []string{"cover_url", "coverUrl", "image", "image_url", "thumbnail", "poster", "cover"} {
		if value, ok := job.Source[key].(string); ok && value != "" {
			meta.CoverURL = value
			break
		}
	}
	return meta
}

func parsePeople(value interface{}) []string {
	switch v := value.(type) {
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return nil
		}
		if strings.HasPrefix(trimmed, "{") {
			var decoded map[string]string
			if err := json.Unmarshal([]byte(trimmed), &decoded); err == nil {
				names := make([]string, 0, len(decoded))
				for _, name := range decoded {
					names = append(names, name)
				}
				sort.Strings(names)
				return names
			}
		}
		return []string{trimmed}
	case []interface{}:
		var names []string
		for _, item := range v {
			if name, ok := item.(string); ok && strings.TrimSpace(name) != "" {
				names = append(names, strings.TrimSpace(name))
			}
		}
		return names
	case map[string]interface{}:
		var names []string
		for _, item := range v {
			if name, ok := item.(string); ok {
				names = append(names, name)
			}
		}
		sort.Strings(names)
		return names
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// tagArgs builds the -metadata flags. Artist follows audiobook convention,
// narrators when known, authors otherwise.
func tagArgs(meta bookMetadata) []string {
	args := []string{
		"-metadata", "title=" + meta.Title,
		"-metadata", "album=" + meta.Title,
	}
	artist := strings.Join(meta.Narrators, ", ")
	if artist == "" {
		artist = strings.Join(meta.Authors, ", ")
	}
	if artist != "" {
		args = append(args, "-metadata", "artist="+artist)
	}
	if len(meta.Authors) > 0 {
		args = append(args, "-metadata", "album_artist="+meta.Authors[0])
	}
	if len(meta.Narrators) > 0 {
		args = append(args, "-metadata", "composer="+strings.Join(meta.Narrators, ", "))
	}
	if meta.Description != "" {
		args = append(args, "-metadata", "comment="+meta.Description)
	}
	return args
}

func tail(output string) string {
	output = strings.TrimSpace(output)
	if len(output) > 400 {
		return "..." + output[len(output)-400:]
	}
	return output
}
