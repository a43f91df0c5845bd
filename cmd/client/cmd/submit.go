package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/resona/api/internal/model"
)

var (
	provider string
	prompt   string
	lyrics   string
	title    string

	cloneName     string
	cloneAudioURL string
	referenceText string
	previewText   string

	sourceID     string
	targetSinger string
	rvcModelURL  string
	pitchShift   int

	watchAfter bool
)

func init() {
	generateCmd.Flags().StringVarP(&provider, "provider", "p", "minimax-v2", "music provider: elevenlabs, minimax-v2, minimax-v2.5")
	generateCmd.Flags().StringVar(&prompt, "prompt", "", "style prompt")
	generateCmd.Flags().StringVar(&lyrics, "lyrics", "", "song lyrics")
	generateCmd.Flags().StringVar(&title, "title", "", "display title")
	generateCmd.Flags().BoolVarP(&watchAfter, "watch", "w", false, "poll until the job finishes")

	cloneCmd.Flags().StringVarP(&provider, "provider", "p", "minimax-clone", "clone provider: minimax-clone, qwen-clone")
	cloneCmd.Flags().StringVar(&cloneName, "name", "", "voice name")
	cloneCmd.Flags().StringVar(&cloneAudioURL, "audio", "", "sample audio URL")
	cloneCmd.Flags().StringVar(&referenceText, "reference-text", "", "transcript of the sample (qwen-clone)")
	cloneCmd.Flags().StringVar(&previewText, "preview-text", "", "text for the preview render (minimax-clone)")
	cloneCmd.MarkFlagRequired("name")
	cloneCmd.MarkFlagRequired("audio")

	convertCmd.Flags().StringVarP(&provider, "provider", "p", "amphion-svc", "conversion provider: amphion-svc, rvc-v2")
	convertCmd.Flags().StringVar(&sourceID, "source", "", "completed generation job ID")
	convertCmd.Flags().StringVar(&targetSinger, "singer", "", "preset singer (amphion-svc)")
	convertCmd.Flags().StringVar(&rvcModelURL, "model-url", "", "RVC model URL (rvc-v2)")
	convertCmd.Flags().IntVar(&pitchShift, "pitch", 0, "pitch shift in semitones (-12..12)")
	convertCmd.MarkFlagRequired("source")
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Submit a music generation job",
	Run: func(cmd *cobra.Command, args []string) {
		res, err := api().GenerateMusic(context.Background(), &model.GenerateMusicRequest{
			Provider: model.Provider(provider),
			Prompt:   prompt,
			Lyrics:   lyrics,
			Title:    title,
		})
		finishSubmit(res, err)
	},
}

var cloneCmd = &cobra.Command{
	Use:   "clone",
	Short: "Submit a voice clone job",
	Run: func(cmd *cobra.Command, args []string) {
		res, err := api().CreateVoiceClone(context.Background(), &model.CreateVoiceCloneRequest{
			Provider:      model.Provider(provider),
			Name:          cloneName,
			AudioURL:      cloneAudioURL,
			ReferenceText: referenceText,
			PreviewText:   previewText,
		})
		finishSubmit(res, err)
	},
}

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Submit a voice conversion for a completed generation",
	Run: func(cmd *cobra.Command, args []string) {
		res, err := api().StartVoiceConversion(context.Background(), &model.StartVoiceConversionRequest{
			Provider:           model.Provider(provider),
			SourceGenerationID: sourceID,
			TargetSinger:       targetSinger,
			RVCModelURL:        rvcModelURL,
			PitchShift:         pitchShift,
		})
		finishSubmit(res, err)
	},
}

func finishSubmit(res *model.SubmitResponse, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "submit failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("job %s %s\n", res.JobID, res.Status)
	if watchAfter && !res.Status.IsTerminal() {
		watchJobs([]string{res.JobID})
	}
}
