package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/compose-spec/compose-go/v2/types"
	"github.com/rs/zerolog"
	"github.com/tassa-yoniso-manasi-karoto/dockerutil"

	"github.com/faughnn/factreel/internal/core"
	"github.com/faughnn/factreel/internal/model"
)

// whisperImage is the onerahmet/whisper-asr-webservice image the
// programmatically-built compose project runs.
const whisperImage = "onerahmet/whisper-asr-webservice:latest"

// DockerDiarizer is a local, container-lifecycle-managed Diarizer
// fallback for deployments without network access to replicate.com,
// grounded in internal/pkg/voice's DemucsManager container-lifecycle
// pattern: dockerutil.NewDockerManager brings up a compose project built
// in-process (no compose.yml on disk, the same compose-go types approach
// AudioSepMode.buildComposeProject uses) on first use, torn down by
// Close. Transcription itself is done by posting the audio file to the
// "whisper" service's HTTP endpoint.
type DockerDiarizer struct {
	ModelsDir   string // host directory mounted as the whisper model cache
	ASRModel    string // whisper model name, defaults to "base"
	HostPort    int    // whisper service port on localhost, defaults to 9000
	projectName string

	docker *dockerutil.DockerManager
	logger *dockerutil.ContainerLogConsumer

	httpClient *http.Client
}

// NewDockerDiarizer returns an uninitialized DockerDiarizer; Start brings
// the container up on first use so a run that never needs the fallback
// never pays the image-pull cost.
func NewDockerDiarizer(modelsDir string) *DockerDiarizer {
	return &DockerDiarizer{ModelsDir: modelsDir, projectName: "factreel-diarizer", httpClient: &http.Client{}}
}

func (d *DockerDiarizer) asrModel() string {
	if d.ASRModel != "" {
		return d.ASRModel
	}
	return "base"
}

// buildComposeProject assembles the single-service whisper project in
// memory, the same composetypes.Project shape
// voice.AudioSepMode.buildComposeProject builds for the audio-separator
// container, so dockerutil.Config.Project can bring it up without a
// compose.yml shipped alongside the binary.
func (d *DockerDiarizer) buildComposeProject() *types.Project {
	service := types.ServiceConfig{
		Name:  "whisper",
		Image: whisperImage,
		Ports: []types.ServicePortConfig{
			{Target: 9000, Published: fmt.Sprintf("%d", d.port()), Protocol: "tcp"},
		},
		Environment: types.MappingWithEquals{
			"ASR_MODEL":   strPtr(d.asrModel()),
			"ASR_ENGINE":  strPtr("openai_whisper"),
		},
	}
	if d.ModelsDir != "" {
		service.Volumes = []types.ServiceVolumeConfig{
			{Type: types.VolumeTypeBind, Source: d.ModelsDir, Target: "/root/.cache/whisper"},
		}
	}

	return &types.Project{
		Name: d.projectName,
		Services: types.Services{
			"whisper": service,
		},
	}
}

func strPtr(s string) *string { return &s }

func (d *DockerDiarizer) port() int {
	if d.HostPort != 0 {
		return d.HostPort
	}
	return 9000
}

// Start brings up the whisper container, idempotent across calls.
func (d *DockerDiarizer) Start(ctx context.Context) error {
	if d.docker != nil {
		return nil
	}
	if err := dockerutil.EngineIsReachable(); err != nil {
		return &core.AdapterError{Adapter: "diarizer", Kind: core.AdapterKindUnavailable, Cause: err}
	}

	logConfig := dockerutil.LogConfig{
		Prefix:      d.projectName,
		ShowService: true,
		ShowType:    true,
		LogLevel:    zerolog.DebugLevel,
		InitMessage: d.projectName,
	}
	logger := dockerutil.NewContainerLogConsumer(logConfig)

	cfg := dockerutil.Config{
		ProjectName:      d.projectName,
		Project:          d.buildComposeProject(),
		RequiredServices: []string{"whisper"},
		LogConsumer:      logger,
		Timeout: dockerutil.Timeout{
			Create:   300 * time.Second,
			Recreate: 10 * time.Minute,
			Start:    60 * time.Second,
		},
	}

	manager, err := dockerutil.NewDockerManager(ctx, cfg)
	if err != nil {
		return &core.AdapterError{Adapter: "diarizer", Kind: core.AdapterKindUnavailable, Cause: err}
	}
	d.docker = manager
	d.logger = logger
	return nil
}

// Close tears down the container. Safe to call on an unstarted instance.
func (d *DockerDiarizer) Close(ctx context.Context) error {
	if d.docker == nil {
		return nil
	}
	return d.docker.Close(ctx)
}

// Diarize posts audioPath to the local whisper container's /asr endpoint
// and converts its response into a Transcript. The container has no
// diarization model (unlike the default Replicate whisperx diarizer),
// so every segment is attributed to a single placeholder speaker.
func (d *DockerDiarizer) Diarize(ctx context.Context, audioPath string) (*model.Transcript, error) {
	if err := d.Start(ctx); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(audioPath)
	if err != nil {
		return nil, &core.AdapterError{Adapter: "diarizer", Kind: core.AdapterKindNotFound, Cause: err}
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("audio_file", filepath.Base(audioPath))
	if err != nil {
		return nil, &core.AdapterError{Adapter: "diarizer", Kind: core.AdapterKindFormat, Cause: err}
	}
	if _, err := part.Write(data); err != nil {
		return nil, &core.AdapterError{Adapter: "diarizer", Kind: core.AdapterKindFormat, Cause: err}
	}
	if err := mw.Close(); err != nil {
		return nil, &core.AdapterError{Adapter: "diarizer", Kind: core.AdapterKindFormat, Cause: err}
	}

	endpoint := fmt.Sprintf("http://localhost:%d/asr?output=json&word_timestamps=false", d.port())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return nil, &core.AdapterError{Adapter: "diarizer", Kind: core.AdapterKindMalformed, Cause: err}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := d.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, &core.AdapterError{Adapter: "diarizer", Kind: core.AdapterKindTimeout, Cause: err}
		}
		return nil, &core.AdapterError{Adapter: "diarizer", Kind: core.AdapterKindNetwork, Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &core.AdapterError{Adapter: "diarizer", Kind: core.AdapterKindNetwork, Cause: fmt.Errorf("whisper container returned status %d", resp.StatusCode)}
	}

	var parsed struct {
		Text     string `json:"text"`
		Language string `json:"language"`
		Segments []struct {
			Start float64 `json:"start"`
			End   float64 `json:"end"`
			Text  string  `json:"text"`
		} `json:"segments"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, &core.AdapterError{Adapter: "diarizer", Kind: core.AdapterKindFormat, Cause: err}
	}

	segments := make([]model.Segment, 0, len(parsed.Segments))
	for i, s := range parsed.Segments {
		segments = append(segments, model.Segment{
			ID:      i,
			Speaker: "SPEAKER_00",
			Text:    strings.TrimSpace(s.Text),
			Start:   s.Start,
			End:     s.End,
		})
	}

	return &model.Transcript{
		Language:      parsed.Language,
		Model:         "docker/whisper",
		TotalSegments: len(segments),
		Segments:      segments,
	}, nil
}
