// Command wztonx transcodes legacy WZ game-asset archives (and bare
// .img files) into the compact, random-access NX format.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nolifestory/wztonx/internal/archive"
	"github.com/nolifestory/wztonx/internal/emit"
	"github.com/nolifestory/wztonx/internal/mmapfile"
)

func newLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(colorable.NewColorableStderr())
	log.SetFormatter(&logrus.TextFormatter{
		ForceColors:   isatty.IsTerminal(os.Stderr.Fd()),
		DisableColors: !isatty.IsTerminal(os.Stderr.Fd()),
		FullTimestamp: false,
	})
	return log
}

func main() {
	var client, server, highCompression bool
	log := newLogger()

	root := &cobra.Command{
		Use:   "wztonx [-c] [-s] [-h] <file>...",
		Short: "Transcode WZ game-asset archives into the NX format",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if client && server {
				return fmt.Errorf("-c/--client and -s/--server are mutually exclusive")
			}
			opts := emit.Options{Client: !server, HighCompression: highCompression}

			hadBadFile := false
			for _, path := range args {
				info, err := os.Stat(path)
				if err != nil || !info.Mode().IsRegular() {
					log.Errorf("%s: not a regular file", path)
					hadBadFile = true
					continue
				}
				if err := transcodeOne(log, path, opts); err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
			}
			if hadBadFile {
				os.Exit(1)
			}
			return nil
		},
	}

	// Pre-register a shorthand-less help flag so cobra's own
	// InitDefaultHelpFlag skips claiming "-h", leaving it free for
	// --high-compression below.
	root.PersistentFlags().Bool("help", false, "help for "+root.Name())

	root.Flags().BoolVarP(&client, "client", "c", false, "emit bitmap and audio sections (default)")
	root.Flags().BoolVarP(&server, "server", "s", false, "omit bitmap and audio payloads")
	root.Flags().BoolVarP(&highCompression, "high-compression", "h", false, "use LZ4-HC instead of default LZ4 for bitmaps")

	if err := root.Execute(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

// transcodeOne parses path end to end and writes the resulting .nx file
// alongside it (§6.1).
func transcodeOne(log *logrus.Logger, path string, opts emit.Options) error {
	r, err := mmapfile.OpenReader(path)
	if err != nil {
		return err
	}
	defer r.Close()

	p := archive.NewParser(r, log)
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".wz":
		err = p.ParseArchive()
	case ".img":
		err = p.ParseBareImg()
	default:
		return fmt.Errorf("unrecognized extension %q (expected .wz or .img)", ext)
	}
	if err != nil {
		return err
	}

	out := strings.TrimSuffix(path, filepath.Ext(path)) + ".nx"
	if err := emit.Write(out, p, opts); err != nil {
		return err
	}
	log.Infof("wrote %s", out)
	return nil
}
