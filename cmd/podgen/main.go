package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/podforge/podforge/internal/agents"
	"github.com/podforge/podforge/internal/audio"
	"github.com/podforge/podforge/internal/config"
	"github.com/podforge/podforge/internal/estimate"
	"github.com/podforge/podforge/internal/ingest"
	"github.com/podforge/podforge/internal/job"
	"github.com/podforge/podforge/internal/models"
	"github.com/podforge/podforge/internal/planner"
	"github.com/podforge/podforge/internal/provider"
	"github.com/podforge/podforge/internal/script"
)

func main() {
	in := flag.String("in", "", "input document (.txt, .md, .html); - reads stdin")
	mode := flag.String("mode", "dual", "generation mode: solo, dual or multi-agent")
	duration := flag.Int("duration", 300, "target duration in seconds")
	title := flag.String("title", "", "episode title (generated when empty)")
	out := flag.String("out", ".", "output directory for script.yaml and episode.mp3")
	flag.Parse()

	if *in == "" {
		fmt.Fprintln(os.Stderr, "usage: podgen -in document.md [-mode dual] [-duration 300] [-out dir]")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	var data []byte
	filename := *in
	if *in == "-" {
		data, err = io.ReadAll(os.Stdin)
		filename = "stdin.txt"
	} else {
		data, err = os.ReadFile(*in)
	}
	if err != nil {
		log.Fatalf("Failed to read input: %v", err)
	}

	text, err := ingest.NewTextExtractor().Extract(filename, data)
	if err != nil {
		log.Fatalf("Failed to extract text: %v", err)
	}

	settings := provider.Settings{
		OpenAIKey:         cfg.OpenAIKey,
		OpenRouterKey:     cfg.OpenRouterKey,
		OpenRouterBaseURL: cfg.OpenRouterBaseURL,
		GeminiKey:         cfg.GeminiKey,
		ElevenLabsKey:     cfg.ElevenLabsKey,
		TextModel:         cfg.TextModel,
		SpeechModel:       cfg.SpeechModel,
	}
	textGen, err := provider.OpenText(cfg.TextProvider, settings)
	if err != nil {
		log.Fatalf("Failed to open text provider: %v", err)
	}
	speech, err := provider.OpenSpeech(cfg.SpeechProvider, settings)
	if err != nil {
		log.Fatalf("Failed to open speech provider: %v", err)
	}

	usage := provider.NewUsage()
	gateway := provider.NewGateway(textGen, speech, usage, provider.Options{
		MaxAttempts: cfg.ProviderMaxAttempts,
	})
	estimator := estimate.New(cfg.WordsPerMinute, cfg.SegmentPauseSec)
	plan := planner.New(gateway, estimator, agents.New(gateway, estimator), planner.Options{
		Tolerance:          cfg.DurationTolerance,
		MaxIterations:      cfg.FitMaxIterations,
		CoordinationStrict: cfg.CoordinationStrict,
	})
	manager := job.NewManager(plan, gateway, audio.NewMP3Concat(), estimator, job.Options{
		SynthConcurrency: cfg.SynthConcurrency,
	})

	req := models.GenerationRequest{
		Text:              text,
		Mode:              models.Mode(*mode),
		TargetDurationSec: *duration,
		Title:             *title,
	}

	id, err := manager.Submit(req)
	if err != nil {
		log.Fatalf("Failed to submit job: %v", err)
	}

	events, stop, err := manager.Subscribe(id)
	if err != nil {
		log.Fatalf("Failed to subscribe: %v", err)
	}
	defer stop()

	last := models.JobState("")
	for ev := range events {
		if ev.State != last {
			log.Printf("[%s] %.0f%%", ev.State, ev.Progress*100)
			last = ev.State
		}
	}

	status, err := manager.Status(id)
	if err != nil {
		log.Fatalf("Failed to get status: %v", err)
	}
	for _, w := range status.Warnings {
		log.Printf("warning: %s", w)
	}
	if status.State != models.JobStateReady {
		if status.Error != nil {
			log.Fatalf("Generation failed: %v", status.Error)
		}
		log.Fatalf("Generation ended in state %s", status.State)
	}

	s, err := manager.Script(id)
	if err != nil {
		log.Fatalf("Failed to get script: %v", err)
	}
	yml, err := script.Serialize(s)
	if err != nil {
		log.Fatalf("Failed to serialize script: %v", err)
	}
	mp3, err := manager.Audio(id)
	if err != nil {
		log.Fatalf("Failed to get audio: %v", err)
	}

	scriptPath := filepath.Join(*out, "script.yaml")
	audioPath := filepath.Join(*out, "episode.mp3")
	if err := os.WriteFile(scriptPath, yml, 0o644); err != nil {
		log.Fatalf("Failed to write script: %v", err)
	}
	if err := os.WriteFile(audioPath, mp3, 0o644); err != nil {
		log.Fatalf("Failed to write audio: %v", err)
	}

	log.Printf("Wrote %s and %s (estimated %.1fs)", scriptPath, audioPath, status.EstimatedDurationSec)
	for key, c := range usage.Snapshot() {
		log.Printf("usage %s: %d calls, $%.4f", key, c.Calls, c.CostUSD)
	}
}
