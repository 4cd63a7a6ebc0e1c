package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"github.com/vishlabs/readaloud/tts"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

var (
	voicesOutput string

	voicesCmd = &cobra.Command{
		Use:     "voices",
		Short:   "List the voices of the speech engine",
		Long:    paragraph(fmt.Sprintf("\n%s the voices the configured engine offers. With --lang only voices for that language are shown.", keyword("List"))),
		Example: paragraph("readaloud voices\nreadaloud voices --lang de-DE --output yaml"),
		Args:    cobra.NoArgs,
		RunE:    runVoices,
	}

	languagesCmd = &cobra.Command{
		Use:   "languages",
		Short: "List the languages readaloud offers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			printLanguages(cmd.OutOrStdout())
			return nil
		},
	}
)

func init() {
	voicesCmd.Flags().StringVarP(&voicesOutput, "output", "O", "text", "output format: text or yaml")
}

func runVoices(cmd *cobra.Command, _ []string) error {
	if voicesOutput != "text" && voicesOutput != "yaml" {
		return fmt.Errorf("unknown output format %q: use text or yaml", voicesOutput)
	}

	cfg, err := tts.LoadConfigFromViper()
	if err != nil {
		return err //nolint:wrapcheck
	}

	// --lang narrows the list; an unset language lists everything
	var filter *language.Tag
	if cmd.Flags().Changed("lang") {
		tag, err := tts.LookupLanguage(cfg.Language)
		if err != nil {
			return err //nolint:wrapcheck
		}
		filter = &tag
	}

	s, err := newSession(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	var voices []tts.Voice
	err = s.run(ctx, cfg.InitTimeout, func(finish func()) {
		voices = s.speaker.Voices()
		finish()
	})
	if err != nil {
		return err
	}

	if filter != nil {
		voices = filterVoices(voices, *filter)
	}

	if voicesOutput == "yaml" {
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		if err := enc.Encode(voices); err != nil {
			return fmt.Errorf("unable to encode voices: %w", err)
		}
		return enc.Close() //nolint:wrapcheck
	}

	printVoices(cmd.OutOrStdout(), voices)
	return nil
}

// filterVoices keeps the voices that share tag's base language.
func filterVoices(voices []tts.Voice, tag language.Tag) []tts.Voice {
	base, _ := tag.Base()
	var out []tts.Voice
	for _, v := range voices {
		if b, _ := v.Locale.Base(); b == base {
			out = append(out, v)
		}
	}
	return out
}

func printVoices(w io.Writer, voices []tts.Voice) {
	if len(voices) == 0 {
		fmt.Fprintln(w, "No voices found.")
		return
	}

	fmt.Fprintln(w, header(fmt.Sprintf("%-32s %-8s %-10s %s", "NAME", "LOCALE", "QUALITY", "")))
	for _, v := range voices {
		var notes []string
		if v.RequiresNetwork {
			notes = append(notes, "network")
		}
		if v.Quality >= tts.QualityHigh && !v.RequiresNetwork {
			notes = append(notes, keyword("preferred"))
		}
		fmt.Fprintf(w, "%-32s %-8s %-10s %s\n", v.Name, v.Locale, qualityName(v.Quality), strings.Join(notes, ", "))
	}
}

func qualityName(q int) string {
	switch {
	case q >= tts.QualityVeryHigh:
		return "very high"
	case q >= tts.QualityHigh:
		return "high"
	case q >= tts.QualityNormal:
		return "normal"
	case q >= tts.QualityLow:
		return "low"
	default:
		return "very low"
	}
}

func printLanguages(w io.Writer) {
	fmt.Fprintln(w, header(fmt.Sprintf("%-8s %-24s %s", "TAG", "NAME", "NATIVE")))
	for _, l := range tts.Languages {
		fmt.Fprintf(w, "%-8s %-24s %s\n", l.Tag, tts.DisplayName(l.Tag), faint(tts.SelfName(l.Tag)))
	}
}
