package generate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fauxi/consensus-backend/internal/engine"
	"github.com/fauxi/consensus-backend/internal/publish"
)

// Status is the lifecycle state of one generation job. completed, failed
// and timed_out are terminal.
type Status string

const (
	StatusSubmitted Status = "submitted"
	StatusPolling   Status = "polling"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusTimedOut  Status = "timed_out"
)

// DefaultCheckpoint is used whenever the engine's capability query fails or
// lists nothing; checkpoint resolution must never abort a job.
const DefaultCheckpoint = "juggernautXL_juggXIByRundiffusion.safetensors"

// ArtifactPublisher hands a finished artifact to durable storage with an
// inline fallback. *publish.Publisher satisfies it.
type ArtifactPublisher interface {
	Publish(ctx context.Context, data []byte, suggestedName string) publish.Result
}

// Result is the successful outcome of a job: a durable URL, or the raw
// image bytes plus the publish error that forced inline delivery.
type Result struct {
	ImageURL     string
	Image        []byte
	PublishError string
}

// Options tunes one Orchestrator. Poll fields default to the 60 x 1s
// budget when zero.
type Options struct {
	TempDir         string
	EngineOutputDir string
	PollAttempts    int
	PollInterval    time.Duration
}

// Orchestrator drives generation jobs against the rendering engine:
// submit, poll to a terminal state, publish. It holds no cross-job mutable
// state; each Run owns only the temp files it creates and deletes itself,
// so any number of jobs may be in flight concurrently. There is no
// admission limit; every request is submitted to the engine immediately.
type Orchestrator struct {
	engine    *engine.Client
	publisher ArtifactPublisher
	opts      Options
	log       zerolog.Logger
}

// New creates an Orchestrator.
func New(eng *engine.Client, pub ArtifactPublisher, opts Options, log zerolog.Logger) *Orchestrator {
	if opts.PollAttempts <= 0 {
		opts.PollAttempts = 60
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	if opts.TempDir == "" {
		opts.TempDir = os.TempDir()
	}
	return &Orchestrator{engine: eng, publisher: pub, opts: opts, log: log}
}

// Run executes one job to a terminal state and blocks the caller until it
// gets there. Failures come back as *ClassifiedError. Temp input files are
// removed on every exit path. A cancelled context abandons the wait only;
// the job keeps running on the engine.
func (o *Orchestrator) Run(ctx context.Context, image, mask []byte, prompt, negativePrompt string) (*Result, error) {
	image = Normalize(image)
	mask = Normalize(mask)

	// Unique per-run names keep concurrent jobs from touching each
	// other's files.
	runID := fmt.Sprintf("%d_%s", time.Now().UnixMilli(), uuid.NewString()[:8])
	imagePath := filepath.Join(o.opts.TempDir, "temp_image_"+runID+".png")
	maskPath := filepath.Join(o.opts.TempDir, "temp_mask_"+runID+".png")
	defer o.cleanup(imagePath, maskPath)

	if err := os.WriteFile(imagePath, image, 0o644); err != nil {
		return nil, &ClassifiedError{Kind: KindSubmission, Message: "writing job input: " + err.Error()}
	}
	if err := os.WriteFile(maskPath, mask, 0o644); err != nil {
		return nil, &ClassifiedError{Kind: KindSubmission, Message: "writing job input: " + err.Error()}
	}

	checkpoint := o.resolveCheckpoint(ctx)
	wf := engine.InpaintWorkflow(engine.InpaintParams{
		Checkpoint:     checkpoint,
		ImagePath:      imagePath,
		MaskPath:       maskPath,
		Prompt:         prompt,
		NegativePrompt: negativePrompt,
		OutputPrefix:   "output_" + runID,
	})

	log := o.log.With().Str("run_id", runID).Logger()
	log.Info().Str("status", string(StatusSubmitted)).Str("checkpoint", checkpoint).Msg("submitting workflow")

	promptID, err := o.engine.SubmitPrompt(ctx, wf)
	if err != nil {
		log.Error().Err(err).Str("status", string(StatusFailed)).Msg("submission failed")
		return nil, &ClassifiedError{Kind: KindSubmission, Message: err.Error()}
	}

	log = log.With().Str("prompt_id", promptID).Logger()
	log.Info().Str("status", string(StatusPolling)).Msg("workflow accepted")

	for attempt := 1; attempt <= o.opts.PollAttempts; attempt++ {
		entry, found, err := o.engine.History(ctx, promptID)
		if err != nil {
			// Transient poll failures are absorbed; the attempt budget
			// bounds how long we keep trying.
			log.Warn().Err(err).Int("attempt", attempt).Msg("history poll failed")
		} else if found {
			if entry.Failed() {
				nodes := nodeErrors(entry)
				log.Error().Str("status", string(StatusFailed)).Int("nodes", len(nodes)).Msg("engine reported execution error")
				return nil, &ClassifiedError{
					Kind:    KindExecution,
					Message: "workflow execution failed",
					Nodes:   nodes,
				}
			}
			if images := entry.OutputImages(engine.SaveNodeID); len(images) > 0 {
				log.Info().Str("status", string(StatusCompleted)).Int("attempt", attempt).Msg("workflow completed")
				return o.deliver(ctx, log, images[0])
			}
		}

		select {
		case <-ctx.Done():
			log.Warn().Msg("caller gone, abandoning poll; job continues on engine")
			return nil, ctx.Err()
		case <-time.After(o.opts.PollInterval):
		}
	}

	log.Error().Str("status", string(StatusTimedOut)).Int("attempts", o.opts.PollAttempts).Msg("generation timed out")
	return nil, &ClassifiedError{Kind: KindTimeout, Message: "timeout waiting for image generation"}
}

// resolveCheckpoint asks the engine which checkpoints it has and takes the
// first; any failure or an empty listing falls back to the default.
func (o *Orchestrator) resolveCheckpoint(ctx context.Context) string {
	info, err := o.engine.ObjectInfo(ctx)
	if err != nil {
		o.log.Warn().Err(err).Str("fallback", DefaultCheckpoint).Msg("capability query failed")
		return DefaultCheckpoint
	}
	checkpoints := info.Choices("CheckpointLoaderSimple", "ckpt_name")
	if len(checkpoints) == 0 {
		o.log.Warn().Str("fallback", DefaultCheckpoint).Msg("engine lists no checkpoints")
		return DefaultCheckpoint
	}
	return checkpoints[0]
}

// deliver reads the finished image from the engine's output location and
// hands it to the publisher.
func (o *Orchestrator) deliver(ctx context.Context, log zerolog.Logger, img engine.OutputImage) (*Result, error) {
	path := filepath.Join(o.opts.EngineOutputDir, img.Subfolder, img.Filename)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ClassifiedError{Kind: KindExecution, Message: "reading generated image: " + err.Error()}
	}

	pub := o.publisher.Publish(ctx, data, img.Filename)
	if pub.Err != nil {
		log.Warn().Err(pub.Err).Msg("publish failed, delivering inline")
		return &Result{Image: pub.Image, PublishError: pub.Err.Error()}, nil
	}
	return &Result{ImageURL: pub.URL}, nil
}

func (o *Orchestrator) cleanup(paths ...string) {
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			o.log.Warn().Err(err).Str("path", p).Msg("removing temp file")
		}
	}
}

func nodeErrors(entry engine.HistoryEntry) []NodeError {
	var nodes []NodeError
	for _, ee := range entry.ExecutionErrors() {
		nodes = append(nodes, NodeError{
			NodeID:    ee.NodeID,
			NodeType:  ee.NodeType,
			ErrorType: ee.ExceptionType,
			Message:   ee.ExceptionMessage,
			Traceback: ee.Traceback,
		})
	}
	return nodes
}
