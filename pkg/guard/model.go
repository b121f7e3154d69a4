package guard

// model.go - local ML scam detection using Hugot/ONNX.
//
// Runs a text-classification model (BERT-family scam/spam detector)
// fully local through ONNX Runtime, falling back to the pure Go backend
// when libonnxruntime is unavailable. If no model can be loaded the
// detector stays not-ready and Predict degrades to the safe default, so
// deployments without ML assets silently run on the keyword strategy.

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/options"
	"github.com/knights-analytics/hugot/pipelines"

	"github.com/RajB-1003/AI-Agentic-Honeypot/pkg/config"
)

// DefaultModelName is downloaded when auto-download is enabled and no
// local model directory exists.
const DefaultModelName = "mrm8488/bert-tiny-finetuned-sms-spam-detection"

// DefaultModelPath is where auto-detection looks for model.onnx.
const DefaultModelPath = "./models/scam-detector"

// ModelConfig configures the ONNX-backed classifier.
type ModelConfig struct {
	// ModelPath is the local path to the ONNX model directory.
	ModelPath string

	// ModelName is the HuggingFace model to download when ModelPath is
	// missing and auto-download is enabled.
	ModelName string

	// OnnxLibraryPath points at libonnxruntime; empty means pure Go backend.
	OnnxLibraryPath string

	// Timeout bounds a single inference call.
	Timeout time.Duration
}

// Model classifies messages with a local text-classification model.
type Model struct {
	session  *hugot.Session
	pipeline *pipelines.TextClassificationPipeline
	config   ModelConfig
	mu       sync.RWMutex
	ready    bool
}

// AutoDetectModelConfig locates a usable model. Checks
// HONEYPOT_MODEL_PATH, then DefaultModelPath; with
// HONEYPOT_AUTO_DOWNLOAD_MODEL=true a missing model is fetched.
// Returns nil when no model source is available.
func AutoDetectModelConfig() *ModelConfig {
	if envPath := config.GetEnv("HONEYPOT_MODEL_PATH", ""); envPath != "" {
		if _, err := os.Stat(filepath.Join(envPath, "model.onnx")); err == nil {
			return &ModelConfig{ModelPath: envPath, OnnxLibraryPath: defaultOnnxPath(), Timeout: 30 * time.Second}
		}
		log.Printf("[GUARD] HONEYPOT_MODEL_PATH=%s has no model.onnx, ignoring", envPath)
	}

	if _, err := os.Stat(filepath.Join(DefaultModelPath, "model.onnx")); err == nil {
		return &ModelConfig{ModelPath: DefaultModelPath, OnnxLibraryPath: defaultOnnxPath(), Timeout: 30 * time.Second}
	}

	if config.GetEnvBool("HONEYPOT_AUTO_DOWNLOAD_MODEL", false) {
		return &ModelConfig{
			ModelName:       DefaultModelName,
			ModelPath:       DefaultModelPath,
			OnnxLibraryPath: defaultOnnxPath(),
			Timeout:         30 * time.Second,
		}
	}
	return nil
}

// NewModel creates the classifier and initializes the ONNX session.
func NewModel(cfg ModelConfig) (*Model, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	m := &Model{config: cfg}
	if err := m.initialize(); err != nil {
		return nil, fmt.Errorf("model initialization failed: %w", err)
	}
	return m, nil
}

// NewModelWithFallback creates the classifier but degrades gracefully:
// on initialization failure it returns a not-ready instance whose
// Predict always reports clean.
func NewModelWithFallback(cfg ModelConfig) *Model {
	m, err := NewModel(cfg)
	if err != nil {
		log.Printf("[GUARD] WARNING: model classifier unavailable (graceful degradation): %v", err)
		return &Model{config: cfg, ready: false}
	}
	return m
}

func (m *Model) initialize() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, err := m.createSession()
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	m.session = session

	modelPath, err := m.resolveModelPath()
	if err != nil {
		_ = m.session.Destroy()
		return fmt.Errorf("resolve model path: %w", err)
	}

	pipeline, err := hugot.NewPipeline(session, hugot.TextClassificationConfig{
		ModelPath: modelPath,
		Name:      "scam-detector",
	})
	if err != nil {
		_ = m.session.Destroy()
		return fmt.Errorf("create pipeline: %w", err)
	}

	m.pipeline = pipeline
	m.ready = true
	log.Printf("[GUARD] model classifier initialized (model: %s)", modelPath)
	return nil
}

func (m *Model) createSession() (*hugot.Session, error) {
	// ONNX Runtime backend when the shared library exists, pure Go otherwise.
	if m.config.OnnxLibraryPath != "" {
		session, err := hugot.NewORTSession(options.WithOnnxLibraryPath(m.config.OnnxLibraryPath))
		if err == nil {
			return session, nil
		}
		log.Printf("[GUARD] ONNX Runtime unavailable, falling back to Go backend: %v", err)
	}
	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("create Go session: %w", err)
	}
	return session, nil
}

func (m *Model) resolveModelPath() (string, error) {
	if m.config.ModelPath != "" {
		if _, err := os.Stat(m.config.ModelPath); err == nil {
			return m.config.ModelPath, nil
		}
	}
	if m.config.ModelName == "" {
		return "", fmt.Errorf("no model path or name specified")
	}

	if err := os.MkdirAll("./models", 0o755); err != nil {
		return "", fmt.Errorf("create models directory: %w", err)
	}
	log.Printf("[GUARD] downloading model %s...", m.config.ModelName)
	modelPath, err := hugot.DownloadModel(m.config.ModelName, "./models", hugot.NewDownloadOptions())
	if err != nil {
		return "", fmt.Errorf("download model: %w", err)
	}
	return modelPath, nil
}

// IsReady reports whether the model loaded and inference is available.
func (m *Model) IsReady() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ready
}

func (m *Model) Name() string { return "model" }

// Predict runs single-text inference. Any failure, including a
// not-ready detector, degrades to the safe default (false, 0).
func (m *Model) Predict(ctx context.Context, text string) (bool, float64) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.ready || m.pipeline == nil {
		return false, 0.0
	}

	result, err := m.pipeline.RunPipeline([]string{text})
	if err != nil {
		log.Printf("[GUARD] model inference failed, degrading to clean: %v", err)
		return false, 0.0
	}
	if len(result.ClassificationOutputs) == 0 || len(result.ClassificationOutputs[0]) == 0 {
		return false, 0.0
	}

	out := result.ClassificationOutputs[0][0]
	if !isScamLabel(out.Label) {
		return false, 0.0
	}
	return true, float64(out.Score)
}

// Close releases the ONNX session.
func (m *Model) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ready = false
	if m.session != nil {
		return m.session.Destroy()
	}
	return nil
}

// isScamLabel maps model-specific label conventions onto the scam verdict:
// - sms-spam detectors: "LABEL_1" (spam) vs "LABEL_0" (ham)
// - scam fine-tunes: "scam"/"spam"/"phishing" vs "legitimate"
func isScamLabel(label string) bool {
	switch label {
	case "LABEL_1", "spam", "scam", "phishing", "SPAM", "SCAM":
		return true
	default:
		return false
	}
}

func defaultOnnxPath() string {
	paths := []string{
		"/usr/lib/libonnxruntime.so",
		"/usr/local/lib/libonnxruntime.so",
		"/opt/homebrew/lib/libonnxruntime.dylib",
		"/usr/local/lib/libonnxruntime.dylib",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return filepath.Dir(p)
		}
	}
	return ""
}
