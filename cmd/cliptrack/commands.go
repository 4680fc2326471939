package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cliptrack/cliptrack"
	"github.com/cliptrack/cliptrack/oto"
	"github.com/cliptrack/cliptrack/version"
)

var (
	trackFlag int
	clipFlag  int
	atFlag    string
	fromFlag  string
	toFlag    string
	outFlag   string
	snapFlag  int

	audioTracksFlag int
	midiTracksFlag  int
	descFlag        string
)

var newCmd = &cobra.Command{
	Use:   "new [name]",
	Short: "Create a new session file.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(sessionPath); err == nil {
			return fmt.Errorf("session file %s already exists", sessionPath)
		}
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()
		if err := a.open(false); err != nil {
			return err
		}
		if len(args) > 0 {
			a.model.Session().Name = args[0]
		}
		a.model.Session().Description = descFlag
		for i := 0; i < audioTracksFlag; i++ {
			if _, err := a.model.AddTrack(cliptrack.AudioTrack); err != nil {
				return err
			}
		}
		for i := 0; i < midiTracksFlag; i++ {
			if _, err := a.model.AddTrack(cliptrack.MidiTrack); err != nil {
				return err
			}
		}
		return a.save()
	},
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Print the tracks and clips of the session.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(func(ctx context.Context, a *app) error {
			s := a.model.Session()
			fmt.Printf("%s: %d Hz, %d ticks per beat, %d tracks, %.2f s\n", s.Name, s.TimeScale.SampleRate,
				s.TimeScale.TicksPerBeat, len(s.Tracks), float64(s.Length())/float64(s.TimeScale.SampleRate))
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TRACK\tCLIP\tNAME\tSTART\tOFFSET\tLENGTH\tGAIN\tFILE")
			for i, t := range s.Tracks {
				fmt.Fprintf(w, "%d\t\t%s (%s)\t\t\t%d\t\t\n", i+1, t.Name, t.Type, t.Length())
				for j, c := range t.Clips {
					fmt.Fprintf(w, "\t%d\t%s\t%d\t%d\t%d\t%.3f\t%s\n", j+1, c.Name, c.Start, c.Offset, c.Length, c.Gain, c.Filename)
				}
			}
			return w.Flush()
		})
	},
}

var importCmd = &cobra.Command{
	Use:   "import files...",
	Short: "Import audio and MIDI files, onto a track or as new tracks.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(func(ctx context.Context, a *app) error {
			at, err := a.position(atFlag)
			if err != nil {
				return err
			}
			if trackFlag > 0 {
				t, err := a.track(trackFlag)
				if err != nil {
					return err
				}
				a.model.SetCurrentTrack(t)
			}
			return a.model.ImportClips(ctx, args, at)
		})
	},
}

var splitCmd = &cobra.Command{
	Use:   "split",
	Short: "Split a clip in two at a position.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(func(ctx context.Context, a *app) error {
			c, err := a.targetClip()
			if err != nil {
				return err
			}
			at, err := a.position(atFlag)
			if err != nil {
				return err
			}
			a.model.SetPlayHead(at)
			return a.model.SplitClip(c)
		})
	},
}

var normalizeCmd = &cobra.Command{
	Use:   "normalize",
	Short: "Normalize the gain of the clips of a track, or of one clip.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(func(ctx context.Context, a *app) error {
			clips, err := a.targetClips()
			if err != nil {
				return err
			}
			return a.model.NormalizeClips(ctx, clips...)
		})
	},
}

var quantizeCmd = &cobra.Command{
	Use:   "quantize",
	Short: "Quantize the notes of the MIDI clips of a track, or of one clip.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(func(ctx context.Context, a *app) error {
			if snapFlag > 0 {
				a.model.Session().TimeScale.SnapPerBeat = snapFlag
			}
			clips, err := a.targetClips()
			if err != nil {
				return err
			}
			return a.model.QuantizeClips(clips...)
		})
	},
}

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Mix the clips of a track within a range into a single clip.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(func(ctx context.Context, a *app) error {
			if err := a.selectRange(); err != nil {
				return err
			}
			return a.model.MergeClips(ctx, outFlag)
		})
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Mix the clips of a track within a range into a new file.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(func(ctx context.Context, a *app) error {
			if err := a.selectRange(); err != nil {
				return err
			}
			return a.model.ExportClips(ctx, outFlag)
		})
	},
}

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play the audio clips of a track.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(func(ctx context.Context, a *app) error {
			t, err := a.track(max(trackFlag, 1))
			if err != nil {
				return err
			}
			from, err := a.position(fromFlag)
			if err != nil {
				return err
			}
			to := t.Length()
			if toFlag != "" {
				if to, err = a.position(toFlag); err != nil {
					return err
				}
			}
			audioContext, err := oto.NewContext(a.model.SampleRate(), max(t.Channels, 1))
			if err != nil {
				return err
			}
			defer audioContext.Close()
			out := audioContext.Output()
			defer out.Close()
			return a.model.Render(ctx, t, from, to, out)
		})
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version.",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.VersionOrHash)
	},
}

func init() {
	for _, c := range []*cobra.Command{importCmd, splitCmd, normalizeCmd, quantizeCmd, mergeCmd, exportCmd, playCmd} {
		c.Flags().IntVarP(&trackFlag, "track", "t", 0, "Track number, starting from 1.")
	}
	for _, c := range []*cobra.Command{splitCmd, normalizeCmd, quantizeCmd} {
		c.Flags().IntVar(&clipFlag, "clip", 0, "Clip number on the track, starting from 1. All clips of the track if not given.")
	}
	for _, c := range []*cobra.Command{importCmd, splitCmd} {
		c.Flags().StringVar(&atFlag, "at", "", "Position: frames, seconds (1.5s) or bar:beat (3:1).")
	}
	for _, c := range []*cobra.Command{mergeCmd, exportCmd, playCmd} {
		c.Flags().StringVar(&fromFlag, "from", "", "Start of the range.")
		c.Flags().StringVar(&toFlag, "to", "", "End of the range; the end of the track if not given.")
	}
	for _, c := range []*cobra.Command{mergeCmd, exportCmd} {
		c.Flags().StringVarP(&outFlag, "out", "o", "", "Output file; a new file in the session directory if not given.")
	}
	quantizeCmd.Flags().IntVar(&snapFlag, "snap", 0, "Grid lines per beat; the snap of the session if not given.")
	newCmd.Flags().IntVar(&audioTracksFlag, "audio-tracks", 0, "Number of empty audio tracks.")
	newCmd.Flags().IntVar(&midiTracksFlag, "midi-tracks", 0, "Number of empty MIDI tracks.")
	newCmd.Flags().StringVar(&descFlag, "description", "", "Session description.")
}

func (a *app) targetClip() (*cliptrack.Clip, error) {
	t, err := a.track(max(trackFlag, 1))
	if err != nil {
		return nil, err
	}
	return a.clip(t, max(clipFlag, 1))
}

func (a *app) targetClips() ([]*cliptrack.Clip, error) {
	t, err := a.track(max(trackFlag, 1))
	if err != nil {
		return nil, err
	}
	if clipFlag == 0 {
		return t.Clips, nil
	}
	c, err := a.clip(t, clipFlag)
	if err != nil {
		return nil, err
	}
	return []*cliptrack.Clip{c}, nil
}

// selectRange selects the parts of the clips of the track within the
// range given by the flags.
func (a *app) selectRange() error {
	t, err := a.track(max(trackFlag, 1))
	if err != nil {
		return err
	}
	from, err := a.position(fromFlag)
	if err != nil {
		return err
	}
	to := t.Length()
	if toFlag != "" {
		if to, err = a.position(toFlag); err != nil {
			return err
		}
	}
	a.model.SetEditRange(from, to)
	a.model.SelectEditRange(t)
	if !a.model.IsClipSelected() {
		return cliptrack.Precondition("no clips in range")
	}
	return nil
}
