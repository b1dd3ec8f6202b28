// Package cli parses the command line into an immutable options value. It is
// separate from main so the exit-code contract is testable.
package cli

import (
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"github.com/kinectcast/kinectcast/pkg/types"
)

// Options is everything the command line controls.
type Options struct {
	Stream      types.StreamConfig
	DeviceIndex int
	SenderName  string // network stream name prefix
	MetricsAddr string // empty disables the metrics endpoint
	LogLevel    string
	LogColor    bool
}

// Parse parses args (without the program name). When the returned options are
// nil the process must exit with the returned code; usage and error text have
// already been written to out.
//
// Contract: no arguments or --help prints usage and exits 0; an unknown flag
// or an invalid modality combination prints usage and exits 1.
func Parse(name string, args []string, out io.Writer) (*Options, int) {
	opts := &Options{}

	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(out)
	fs.SortFlags = false

	fs.BoolVar(&opts.Stream.Brightness, "ir", false, "enable infrared (IR) streaming (8-bit grayscale)")
	fs.BoolVar(&opts.Stream.Color, "rgb", false, "enable RGB video streaming")
	fs.BoolVar(&opts.Stream.Depth, "depth", false, "enable depth streaming")
	fs.IntVar(&opts.DeviceIndex, "device", 0, "Kinect device index")
	fs.StringVar(&opts.SenderName, "name", "Kinect", "network stream name prefix")
	fs.StringVar(&opts.MetricsAddr, "metrics", ":9090", "metrics/health listen address (empty disables)")
	fs.StringVar(&opts.LogLevel, "log-level", "info", "log level (debug, info, warn, error, silent)")
	fs.BoolVar(&opts.LogColor, "log-color", true, "colored log output")
	help := fs.BoolP("help", "h", false, "display this help message")

	fs.Usage = func() {
		fmt.Fprintf(out, "Usage: %s [--ir | --rgb] [--depth] [options]\n", name)
		fmt.Fprintf(out, "Options:\n%s", fs.FlagUsages())
		fmt.Fprintf(out, "\nEnable either --ir or --rgb for the video stream (not both).\n")
		fmt.Fprintf(out, "Depth streaming can be combined with either video mode.\n")
	}

	if len(args) == 0 {
		fs.Usage()
		return nil, 0
	}

	if err := fs.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil, 0
		}
		fmt.Fprintf(out, "Error: %v\n", err)
		fs.Usage()
		return nil, 1
	}
	if *help {
		fs.Usage()
		return nil, 0
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(out, "Unknown argument: %s\n", fs.Arg(0))
		fs.Usage()
		return nil, 1
	}

	if err := opts.Stream.Validate(); err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return nil, 1
	}

	return opts, 0
}

// SenderNames returns the transmitter stream names for the enabled
// modalities: the video name (IR or RGB) and the depth name. Empty strings
// mean the modality is disabled.
func (o *Options) SenderNames() (video, depth string) {
	if o.Stream.Brightness {
		video = o.SenderName + " IR Stream"
	} else if o.Stream.Color {
		video = o.SenderName + " RGB Stream"
	}
	if o.Stream.Depth {
		depth = o.SenderName + " Depth Stream"
	}
	return video, depth
}
