package piper

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/vishlabs/readaloud/tts"
	"golang.org/x/text/language"
)

// defaultSampleRate is used when a model has no readable config.
const defaultSampleRate = 22050

// Model is an installed Piper voice model.
type Model struct {
	Voice      tts.Voice
	Path       string // .onnx file
	ConfigPath string // .onnx.json sidecar, empty if missing
	SampleRate int
}

// modelConfig is the subset of a model's .onnx.json we read.
type modelConfig struct {
	Audio struct {
		SampleRate int    `json:"sample_rate"`
		Quality    string `json:"quality"`
	} `json:"audio"`
	Language struct {
		Code string `json:"code"`
	} `json:"language"`
	NumSpeakers int `json:"num_speakers"`
}

// qualityScores maps Piper quality names to voice quality scores.
var qualityScores = map[string]int{
	"x_low":  tts.QualityVeryLow,
	"low":    tts.QualityLow,
	"medium": tts.QualityNormal,
	"high":   tts.QualityHigh,
}

// DiscoverModels lists the models in dir, best quality first. Models are
// named like "en_US-lessac-medium.onnx"; locale and quality come from the
// sidecar config, or from the file name when there is none.
func DiscoverModels(dir string) ([]Model, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("model directory: %w", err)
	}
	paths, err := filepath.Glob(filepath.Join(dir, "*.onnx"))
	if err != nil {
		return nil, fmt.Errorf("scan models: %w", err)
	}

	models := make([]Model, 0, len(paths))
	for _, p := range paths {
		m, err := loadModel(p)
		if err != nil {
			continue
		}
		models = append(models, m)
	}

	sort.SliceStable(models, func(i, j int) bool {
		if models[i].Voice.Quality != models[j].Voice.Quality {
			return models[i].Voice.Quality > models[j].Voice.Quality
		}
		return models[i].Voice.Name < models[j].Voice.Name
	})
	return models, nil
}

func loadModel(path string) (Model, error) {
	name := strings.TrimSuffix(filepath.Base(path), ".onnx")
	localePart, qualityPart := splitModelName(name)

	m := Model{
		Path:       path,
		SampleRate: defaultSampleRate,
		Voice: tts.Voice{
			Name:    name,
			Latency: tts.LatencyNormal,
		},
	}

	var cfg modelConfig
	configPath := path + ".json"
	if data, err := os.ReadFile(configPath); err == nil {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return Model{}, fmt.Errorf("%s: %w", configPath, err)
		}
		m.ConfigPath = configPath
	}

	if cfg.Language.Code != "" {
		localePart = cfg.Language.Code
	}
	if cfg.Audio.Quality != "" {
		qualityPart = cfg.Audio.Quality
	}
	if cfg.Audio.SampleRate > 0 {
		m.SampleRate = cfg.Audio.SampleRate
	}

	locale, err := language.Parse(strings.ReplaceAll(localePart, "_", "-"))
	if err != nil {
		return Model{}, fmt.Errorf("%s: locale %q: %w", path, localePart, err)
	}
	m.Voice.Locale = locale

	score, ok := qualityScores[qualityPart]
	if !ok {
		score = tts.QualityNormal
	}
	m.Voice.Quality = score
	if score <= tts.QualityLow {
		m.Voice.Latency = tts.LatencyLow
	}
	if cfg.NumSpeakers > 1 {
		m.Voice.Features = append(m.Voice.Features, "multi-speaker")
	}

	return m, nil
}

// splitModelName splits "en_US-lessac-medium" into "en_US" and "medium".
func splitModelName(name string) (locale, quality string) {
	parts := strings.Split(name, "-")
	locale = parts[0]
	if len(parts) > 1 {
		quality = parts[len(parts)-1]
	}
	return locale, quality
}

// languageStatus reports how well models cover locale and returns the best
// model for it, if any.
func languageStatus(models []Model, locale language.Tag) (tts.LanguageStatus, *Model) {
	base, _ := locale.Base()

	var sameBase *Model
	for i := range models {
		m := &models[i]
		if tts.SameLocale(m.Voice.Locale, locale) {
			return tts.LangCountryAvailable, m
		}
		if b, _ := m.Voice.Locale.Base(); b == base && sameBase == nil {
			sameBase = m
		}
	}
	if sameBase != nil {
		return tts.LangAvailable, sameBase
	}
	if tts.InCatalog(locale) {
		return tts.LangMissingData, nil
	}
	return tts.LangNotSupported, nil
}

func findModel(models []Model, name string) (*Model, bool) {
	for i := range models {
		if strings.EqualFold(models[i].Voice.Name, name) {
			return &models[i], true
		}
	}
	return nil, false
}
