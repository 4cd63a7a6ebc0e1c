package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/vishlabs/readaloud/tts"
)

var (
	speakTimeout time.Duration
	saveTimeout  time.Duration
	saveName     string

	speakCmd = &cobra.Command{
		Use:     "speak [TEXT]",
		Short:   "Read text aloud",
		Long:    paragraph(fmt.Sprintf("\n%s text aloud, one paragraph after the other. Press Ctrl-C to stop.", keyword("Read"))),
		Example: paragraph("readaloud speak \"Good morning\"\nreadaloud speak --file README.md --category male"),
		RunE:    runSpeak,
	}

	saveCmd = &cobra.Command{
		Use:     "save [TEXT]",
		Short:   "Save spoken text to a WAV file",
		Long:    paragraph(fmt.Sprintf("\n%s text to a WAV file in the output directory instead of playing it.", keyword("Render"))),
		Example: paragraph("readaloud save \"Meeting at noon\" --name reminder\nreadaloud save --clipboard"),
		RunE:    runSave,
	}
)

func init() {
	addInputFlags(speakCmd)
	addInputFlags(saveCmd)
	rootCmd.Flags().DurationVar(&speakTimeout, "timeout", 0, "give up after this long (0 waits until done)")
	speakCmd.Flags().DurationVar(&speakTimeout, "timeout", 0, "give up after this long (0 waits until done)")
	saveCmd.Flags().DurationVar(&saveTimeout, "timeout", 2*time.Minute, "give up after this long")
	saveCmd.Flags().StringVarP(&saveName, "name", "o", "", "file name without extension (default tts_<unix millis>)")
}

// prepareText reads the input and enforces the word limit.
func prepareText(args []string, maxWords int) (string, error) {
	text, err := readInput(args, os.Stdin, stdinIsTerminal())
	if err != nil {
		return "", err
	}
	if err := tts.CheckWordLimit(text, maxWords); err != nil {
		return "", err //nolint:wrapcheck
	}
	return text, nil
}

func runSpeak(cmd *cobra.Command, args []string) error {
	cfg, err := tts.LoadConfigFromViper()
	if err != nil {
		return err //nolint:wrapcheck
	}
	text, err := prepareText(args, cfg.MaxWords)
	if err != nil {
		return err
	}

	s, err := newSession(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	paragraphs := tts.SplitParagraphs(text)
	finished := false
	err = s.run(ctx, speakTimeout, func(finish func()) {
		s.speaker.SpeakParagraphs(paragraphs,
			func(i int) {
				log.Debug("Speaking paragraph", "index", i+1, "of", len(paragraphs))
			},
			func() {
				finished = true
				finish()
			},
		)
	})
	if err != nil {
		return err
	}
	if !finished {
		log.Info("Stopped")
	}
	return nil
}

func runSave(cmd *cobra.Command, args []string) error {
	cfg, err := tts.LoadConfigFromViper()
	if err != nil {
		return err //nolint:wrapcheck
	}
	text, err := prepareText(args, cfg.MaxWords)
	if err != nil {
		return err
	}

	name := saveName
	if name == "" {
		name = defaultSaveName(time.Now())
	}

	// engines report write failures only through a missing callback
	if err := os.MkdirAll(cfg.ResolvedOutputDir(), 0o755); err != nil { //nolint:gosec
		return fmt.Errorf("unable to create output directory: %w", err)
	}

	s, err := newSession(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	saved := false
	err = s.run(ctx, saveTimeout, func(finish func()) {
		s.speaker.SaveToFile(text, name, func() {
			saved = true
			finish()
		})
	})
	if errors.Is(err, errTimeout) {
		return fmt.Errorf("audio was not saved within %v: %w", saveTimeout, err)
	}
	if err != nil {
		return err
	}
	if !saved {
		return errors.New("save interrupted")
	}

	path := s.speaker.OutputPath(name)
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("engine reported success but the file is missing: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved %s %s\n", keyword(path), faint("("+humanize.Bytes(uint64(info.Size()))+")")) //nolint:gosec
	return nil
}

// defaultSaveName names a file after the current time, as tts_<unix millis>.
func defaultSaveName(now time.Time) string {
	return "tts_" + strconv.FormatInt(now.UnixMilli(), 10)
}
