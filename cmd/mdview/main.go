package main

import (
	"errors"
	"fmt"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/arran4/mdview"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "mdview",
		Short:         "Render markdown with math to a raster image",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(renderCmd(), versionCmd())
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("mdview " + version)
		},
	}
}

func renderCmd() *cobra.Command {
	var (
		out      string
		width    int
		margin   int
		pt       float64
		theme    string
		features string
		baseURL  string
		baseDir  string
		fontPath string
		boldPath string
		italPath string
		monoPath string
		verbose  bool
	)
	cmd := &cobra.Command{
		Use:   "render [IN.md]",
		Short: "Render a markdown file (stdin if omitted) to PNG or JPG",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := log.New(os.Stderr)
			logger.SetPrefix("mdview")
			if verbose {
				logger.SetLevel(log.DebugLevel)
			}

			th, err := mdview.ThemeByName(theme)
			if err != nil {
				logger.Error("bad theme", "err", err)
				return err
			}
			feats, err := mdview.ParseFeatures(features)
			if err != nil {
				logger.Error("bad features", "err", err)
				return err
			}
			fonts, err := mdview.LoadFonts(mdview.FontConfig{
				RegularPath: fontPath,
				BoldPath:    boldPath,
				ItalicPath:  italPath,
				MonoPath:    monoPath,
				SizeBase:    pt,
			})
			if err != nil {
				logger.Error("loading fonts", "err", err)
				return err
			}

			var data []byte
			if len(args) == 0 {
				data, err = io.ReadAll(os.Stdin)
			} else {
				data, err = os.ReadFile(args[0])
				if baseDir == "" {
					baseDir = filepath.Dir(args[0])
				}
			}
			if err != nil {
				logger.Error("reading input", "err", err)
				return err
			}

			logger.Debug("rendering", "bytes", len(data), "width", width, "features", features)
			doc, err := mdview.Render(data, mdview.RenderOptions{
				Width:        width,
				Margin:       margin,
				BaseFontSize: pt,
				Theme:        th,
				Fonts:        fonts,
				Features:     feats,
				BaseURL:      baseURL,
				BaseDir:      baseDir,
			})
			if err != nil {
				logger.Error("rendering", "err", err)
				return err
			}
			if doc.Footnotes.HasFootnotes {
				logger.Debug("footnotes rewritten", "count", doc.Footnotes.Count)
			}

			file, err := os.Create(out)
			if err != nil {
				logger.Error("creating output", "err", err)
				return err
			}
			defer file.Close()

			switch ext := strings.ToLower(filepath.Ext(out)); ext {
			case ".png":
				err = png.Encode(file, doc.Image)
			case ".jpg", ".jpeg":
				err = jpeg.Encode(file, doc.Image, &jpeg.Options{Quality: 92})
			default:
				err = errors.New("unsupported output extension: " + ext)
			}
			if err != nil {
				logger.Error("encoding output", "err", err)
				return err
			}
			logger.Info("wrote", "path", out, "height", doc.Image.Bounds().Dy())
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "out.png", "Output image file (.png or .jpg)")
	cmd.Flags().IntVar(&width, "width", 1024, "Output image width in pixels")
	cmd.Flags().IntVar(&margin, "margin", 48, "Margin in pixels")
	cmd.Flags().Float64Var(&pt, "pt", 16, "Base font size in points")
	cmd.Flags().StringVar(&theme, "theme", "light", "Theme: light|dark")
	cmd.Flags().StringVar(&features, "features", "footnotes,syntax", "Comma-separated features, or all|none")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "Base URL for relative links")
	cmd.Flags().StringVar(&baseDir, "base-dir", "", "Base directory for relative image paths")
	cmd.Flags().StringVar(&fontPath, "font", "", "Path to TTF for regular text")
	cmd.Flags().StringVar(&boldPath, "font-bold", "", "Path to TTF for bold text")
	cmd.Flags().StringVar(&italPath, "font-italic", "", "Path to TTF for italic text")
	cmd.Flags().StringVar(&monoPath, "font-mono", "", "Path to TTF for mono/code")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")
	return cmd
}
