package transcribe

import (
	"bufio"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

//go:embed assets/faster_whisper.py
var fwScript []byte

const (
	defaultLoadTimeout = 10 * time.Minute
	maxReplyBytes      = 16 << 20
)

// fwStopGrace is how long a worker gets to exit after its stdin is closed.
var fwStopGrace = 5 * time.Second

// FasterWhisperConfig selects the model and where it runs.
type FasterWhisperConfig struct {
	Python      string // interpreter, default python3
	ModelSize   string // tiny, base, small, medium, large-v3
	Device      string // cpu, cuda or auto
	ComputeType string // int8, float16, ...
	// LoadTimeout bounds model loading, which may include a download.
	LoadTimeout time.Duration
}

// FasterWhisper drives the faster-whisper python package through a worker
// process that keeps the model loaded. Requests are served one at a time;
// a worker that dies is restarted on the next request.
type FasterWhisper struct {
	cfg        FasterWhisperConfig
	python     string
	scriptPath string
	logger     *zap.Logger

	slot   chan struct{}
	nextID int64

	mu     sync.Mutex
	w      *fwWorker
	closed bool
}

type fwRequest struct {
	ID       int64  `json:"id"`
	Audio    string `json:"audio"`
	Language string `json:"language,omitempty"`
	BeamSize int    `json:"beam_size"`
	VAD      bool   `json:"vad"`
}

type fwReply struct {
	Ready    bool      `json:"ready"`
	ID       int64     `json:"id"`
	Error    string    `json:"error"`
	Language string    `json:"language"`
	Duration float64   `json:"duration"`
	Segments []Segment `json:"segments"`
}

// NewFasterWhisper resolves the interpreter, installs the worker script and
// starts the worker. It returns once the model is loaded. Close stops the
// worker and removes the script.
func NewFasterWhisper(ctx context.Context, cfg FasterWhisperConfig, logger *zap.Logger) (*FasterWhisper, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Python == "" {
		cfg.Python = "python3"
	}
	if cfg.ModelSize == "" {
		cfg.ModelSize = "base"
	}
	if cfg.Device == "" {
		cfg.Device = "cpu"
	}
	if cfg.ComputeType == "" {
		cfg.ComputeType = "int8"
	}
	if cfg.LoadTimeout <= 0 {
		cfg.LoadTimeout = defaultLoadTimeout
	}

	python, err := exec.LookPath(cfg.Python)
	if err != nil {
		return nil, fmt.Errorf("python interpreter %q not found: %w", cfg.Python, err)
	}

	scriptPath, err := installScript()
	if err != nil {
		return nil, err
	}

	f := &FasterWhisper{
		cfg:        cfg,
		python:     python,
		scriptPath: scriptPath,
		logger:     logger,
		slot:       make(chan struct{}, 1),
	}

	start := time.Now()
	w, err := f.start(ctx)
	if err != nil {
		os.Remove(scriptPath)
		return nil, err
	}
	f.w = w

	logger.Info("faster-whisper ready",
		zap.String("python", python),
		zap.String("model", cfg.ModelSize),
		zap.String("device", cfg.Device),
		zap.String("compute_type", cfg.ComputeType),
		zap.Duration("load_time", time.Since(start)))
	return f, nil
}

func installScript() (string, error) {
	f, err := os.CreateTemp("", "whispen_faster_whisper_*.py")
	if err != nil {
		return "", fmt.Errorf("create helper script: %w", err)
	}
	if _, err := f.Write(fwScript); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("write helper script: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("write helper script: %w", err)
	}
	return f.Name(), nil
}

// Transcribe implements LocalModel.
func (f *FasterWhisper) Transcribe(ctx context.Context, path, language string, beamSize int, vadFilter bool) ([]Segment, Info, error) {
	select {
	case f.slot <- struct{}{}:
	case <-ctx.Done():
		return nil, Info{}, ctx.Err()
	}
	defer func() { <-f.slot }()

	w, err := f.worker(ctx)
	if err != nil {
		return nil, Info{}, err
	}

	f.nextID++
	id := f.nextID
	line, err := json.Marshal(fwRequest{
		ID:       id,
		Audio:    path,
		Language: language,
		BeamSize: beamSize,
		VAD:      vadFilter,
	})
	if err != nil {
		return nil, Info{}, fmt.Errorf("encode request: %w", err)
	}
	if _, err := w.stdin.Write(append(line, '\n')); err != nil {
		return nil, Info{}, w.failure()
	}

	for {
		select {
		case r, ok := <-w.replies:
			if !ok {
				return nil, Info{}, w.failure()
			}
			if r.ID != id {
				// reply to a request whose caller gave up
				continue
			}
			if r.Error != "" {
				return nil, Info{}, fmt.Errorf("faster-whisper failed: %s", r.Error)
			}
			f.logger.Debug("faster-whisper done",
				zap.String("path", path),
				zap.Int("segments", len(r.Segments)),
				zap.String("language", r.Language))
			return r.Segments, Info{Language: r.Language, Duration: r.Duration}, nil
		case <-ctx.Done():
			return nil, Info{}, ctx.Err()
		}
	}
}

// worker returns the running worker, starting a new one if the last exited.
func (f *FasterWhisper) worker(ctx context.Context) (*fwWorker, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil, errors.New("faster-whisper is closed")
	}
	if f.w != nil && f.w.alive() {
		return f.w, nil
	}
	if f.w != nil {
		f.logger.Warn("faster-whisper worker exited, restarting", zap.String("stderr", f.w.lastStderr()))
		f.w.stop()
		f.w = nil
	}

	w, err := f.start(ctx)
	if err != nil {
		return nil, err
	}
	f.w = w
	return w, nil
}

// start launches a worker and waits for its ready line.
func (f *FasterWhisper) start(ctx context.Context) (*fwWorker, error) {
	cmd := exec.Command(f.python, f.scriptPath,
		"--model", f.cfg.ModelSize,
		"--device", f.cfg.Device,
		"--compute-type", f.cfg.ComputeType)
	cmd.Env = os.Environ()

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("worker stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("worker stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("worker stderr: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start worker: %w", err)
	}

	w := &fwWorker{
		cmd:     cmd,
		stdin:   stdin,
		replies: make(chan fwReply),
		exited:  make(chan struct{}),
		quit:    make(chan struct{}),
		logger:  f.logger,
	}
	w.run(stdout, stderr)

	timer := time.NewTimer(f.cfg.LoadTimeout)
	defer timer.Stop()

	select {
	case r, ok := <-w.replies:
		if !ok {
			return nil, fmt.Errorf("faster-whisper failed to start: %w", w.failure())
		}
		if !r.Ready {
			w.stop()
			return nil, errors.New("faster-whisper failed to start: unexpected first reply")
		}
		return w, nil
	case <-timer.C:
		w.stop()
		return nil, fmt.Errorf("faster-whisper did not load within %s", f.cfg.LoadTimeout)
	case <-ctx.Done():
		w.stop()
		return nil, ctx.Err()
	}
}

// Close stops the worker and removes the helper script.
func (f *FasterWhisper) Close() error {
	f.mu.Lock()
	f.closed = true
	w := f.w
	f.w = nil
	f.mu.Unlock()

	if w != nil {
		w.stop()
	}
	if err := os.Remove(f.scriptPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// fwWorker is one running helper process.
type fwWorker struct {
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	replies chan fwReply
	exited  chan struct{}
	quit    chan struct{}
	logger  *zap.Logger

	stopOnce sync.Once
	mu       sync.Mutex
	stderr   string
	waitErr  error
}

func (w *fwWorker) run(stdout, stderr io.Reader) {
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		defer close(w.replies)
		sc := bufio.NewScanner(stdout)
		sc.Buffer(make([]byte, 64*1024), maxReplyBytes)
		for sc.Scan() {
			var r fwReply
			if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
				w.logger.Debug("faster-whisper output ignored", zap.String("line", sc.Text()))
				continue
			}
			select {
			case w.replies <- r:
			case <-w.quit:
				return
			}
		}
	}()

	go func() {
		defer wg.Done()
		sc := bufio.NewScanner(stderr)
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line == "" {
				continue
			}
			w.logger.Debug("faster-whisper", zap.String("stderr", line))
			w.mu.Lock()
			w.stderr = line
			w.mu.Unlock()
		}
	}()

	go func() {
		wg.Wait()
		err := w.cmd.Wait()
		w.mu.Lock()
		w.waitErr = err
		w.mu.Unlock()
		close(w.exited)
	}()
}

func (w *fwWorker) alive() bool {
	select {
	case <-w.exited:
		return false
	default:
		return true
	}
}

func (w *fwWorker) lastStderr() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stderr
}

// failure describes why the worker went away, preferring its last stderr
// line (the python exception).
func (w *fwWorker) failure() error {
	select {
	case <-w.exited:
	case <-time.After(fwStopGrace):
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stderr != "" {
		return fmt.Errorf("faster-whisper worker exited: %s", w.stderr)
	}
	if w.waitErr != nil {
		return fmt.Errorf("faster-whisper worker exited: %w", w.waitErr)
	}
	return errors.New("faster-whisper worker exited")
}

// stop closes stdin so the worker exits on its own, killing it after
// fwStopGrace.
func (w *fwWorker) stop() {
	w.stopOnce.Do(func() {
		close(w.quit)
		w.stdin.Close()
		select {
		case <-w.exited:
		case <-time.After(fwStopGrace):
			if err := w.cmd.Process.Kill(); err != nil {
				w.logger.Warn("kill faster-whisper worker", zap.Error(err))
			}
		}
	})
}
