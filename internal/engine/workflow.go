package engine

import "time"

// Workflow is a declarative job graph keyed by node id.
type Workflow map[string]Node

// Node is one graph node: a class name plus its inputs. Inputs referencing
// another node are encoded as [nodeID, outputIndex] pairs, matching the
// engine's wire format.
type Node struct {
	ClassType string         `json:"class_type"`
	Inputs    map[string]any `json:"inputs"`
}

// Node ids of the fixed inpainting topology. Only the save node matters to
// callers (its outputs mark completion); the rest are internal wiring.
const (
	nodeCheckpoint     = "225"
	nodePositivePrompt = "241"
	nodeNegativePrompt = "19"
	nodeLoadImage      = "1"
	nodeLoadMask       = "2"
	nodeImageToMask    = "11"
	nodeVAEEncode      = "8"
	nodeLatentMask     = "10"
	nodeSampler        = "248"
	nodeVAEDecode      = "249"

	// SaveNodeID is where the finished image appears in the job history.
	SaveNodeID = "9"
)

// Prompt fillers used when the caller leaves a field empty.
const (
	defaultPrompt         = "a high quality image"
	defaultNegativePrompt = "blur, text, watermark, CGI, Unreal, Airbrushed, Digital"
)

// InpaintParams parameterizes the fixed inpainting graph.
type InpaintParams struct {
	Checkpoint     string
	ImagePath      string
	MaskPath       string
	Prompt         string
	NegativePrompt string
	OutputPrefix   string
}

// InpaintWorkflow builds the fixed inpainting topology: load image, load
// mask, derive the mask from the red channel, encode to latent space, apply
// the noise mask, condition on both prompts, sample, decode, save.
func InpaintWorkflow(p InpaintParams) Workflow {
	prompt := p.Prompt
	if prompt == "" {
		prompt = defaultPrompt
	}
	negative := p.NegativePrompt
	if negative == "" {
		negative = defaultNegativePrompt
	}

	return Workflow{
		nodeCheckpoint: {
			ClassType: "CheckpointLoaderSimple",
			Inputs:    map[string]any{"ckpt_name": p.Checkpoint},
		},
		nodePositivePrompt: {
			ClassType: "CLIPTextEncode",
			Inputs: map[string]any{
				"text": prompt,
				"clip": []any{nodeCheckpoint, 1},
			},
		},
		nodeNegativePrompt: {
			ClassType: "CLIPTextEncode",
			Inputs: map[string]any{
				"text": negative,
				"clip": []any{nodeCheckpoint, 1},
			},
		},
		nodeLoadImage: {
			ClassType: "LoadImage",
			Inputs:    map[string]any{"image": p.ImagePath},
		},
		nodeLoadMask: {
			ClassType: "LoadImage",
			Inputs:    map[string]any{"image": p.MaskPath},
		},
		nodeImageToMask: {
			ClassType: "ImageToMask",
			Inputs: map[string]any{
				"image":   []any{nodeLoadMask, 0},
				"channel": "red",
			},
		},
		nodeVAEEncode: {
			ClassType: "VAEEncode",
			Inputs: map[string]any{
				"pixels": []any{nodeLoadImage, 0},
				"vae":    []any{nodeCheckpoint, 2},
			},
		},
		nodeLatentMask: {
			ClassType: "SetLatentNoiseMask",
			Inputs: map[string]any{
				"samples": []any{nodeVAEEncode, 0},
				"mask":    []any{nodeImageToMask, 0},
			},
		},
		nodeSampler: {
			ClassType: "KSampler",
			Inputs: map[string]any{
				"model":        []any{nodeCheckpoint, 0},
				"positive":     []any{nodePositivePrompt, 0},
				"negative":     []any{nodeNegativePrompt, 0},
				"latent_image": []any{nodeLatentMask, 0},
				"sampler_name": "dpmpp_2m",
				"scheduler":    "karras",
				"seed":         time.Now().Unix(),
				"steps":        30,
				"cfg":          8.5,
				"denoise":      0.85,
			},
		},
		nodeVAEDecode: {
			ClassType: "VAEDecode",
			Inputs: map[string]any{
				"samples": []any{nodeSampler, 0},
				"vae":     []any{nodeCheckpoint, 2},
			},
		},
		SaveNodeID: {
			ClassType: "SaveImage",
			Inputs: map[string]any{
				"images":          []any{nodeVAEDecode, 0},
				"filename_prefix": p.OutputPrefix,
			},
		},
	}
}
