package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"phpsniff/internal/phpcs"
	"phpsniff/internal/version"
)

type versionInfo struct {
	Version   string
	GitCommit string
	BuildDate string
	Tools     []toolVersion
}

type toolVersion struct {
	Name       string `json:"name"`
	Executable string `json:"executable"`
	Version    string `json:"version,omitempty"`
	Generation string `json:"generation"`
	Error      string `json:"error,omitempty"`
}

type versionOptions struct {
	format   string
	showHash bool
	showDate bool
	probe    bool
}

type versionPayload struct {
	Tool      string        `json:"tool"`
	Version   string        `json:"version"`
	GitCommit string        `json:"git_commit,omitempty"`
	BuildDate string        `json:"build_date,omitempty"`
	Tools     []toolVersion `json:"tools,omitempty"`
}

var (
	versionFormat   string
	versionShowHash bool
	versionShowDate bool
	versionShowFull bool
	versionProbe    bool
)

func init() {
	addToolFlags(versionCmd)
	versionCmd.Flags().BoolVar(&versionShowHash, "hash", false, "include git commit hash")
	versionCmd.Flags().BoolVar(&versionShowDate, "date", false, "include build timestamp")
	versionCmd.Flags().BoolVar(&versionShowFull, "full", false, "show all recorded build metadata")
	versionCmd.Flags().BoolVar(&versionProbe, "probe", false, "also report the detected phpcs and phpcbf versions")
	versionCmd.Flags().StringVar(&versionFormat, "format", "pretty", "output format (pretty|json)")
}

var versionCmd = &cobra.Command{
	Use:          "version",
	Short:        "Show phpsniff and tool versions",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := versionOptions{
			format:   strings.ToLower(versionFormat),
			showHash: versionShowHash || versionShowFull,
			showDate: versionShowDate || versionShowFull,
			probe:    versionProbe,
		}
		switch opts.format {
		case "pretty", "json":
		default:
			return fmt.Errorf("unsupported format %q (must be pretty or json)", versionFormat)
		}

		info := collectVersionInfo()
		if opts.probe {
			cleanup, err := setupTracing(cmd)
			if err != nil {
				return err
			}
			defer cleanup()
			tools, err := probeTools(cmd)
			if err != nil {
				return err
			}
			info.Tools = tools
		}

		if opts.format == "json" {
			return renderVersionJSON(cmd.OutOrStdout(), info, opts)
		}
		renderVersionPretty(cmd.OutOrStdout(), info, opts)
		return nil
	},
}

func collectVersionInfo() versionInfo {
	v := strings.TrimSpace(version.Version)
	if v == "" {
		v = "dev"
	}
	return versionInfo{
		Version:   v,
		GitCommit: strings.TrimSpace(version.GitCommit),
		BuildDate: strings.TrimSpace(version.BuildDate),
	}
}

// probeTools asks both configured executables for their versions. A tool
// that cannot be probed is reported, not treated as a command failure.
func probeTools(cmd *cobra.Command) ([]toolVersion, error) {
	ws, err := openWorkspace(cmd, ".")
	if err != nil {
		return nil, err
	}
	tools := []struct {
		name string
		tool phpcs.Tool
	}{
		{"phpcs", ws.resource.ValidatorTool()},
		{"phpcbf", ws.resource.FixerTool()},
	}
	out := make([]toolVersion, 0, len(tools))
	for _, t := range tools {
		tv := toolVersion{Name: t.name, Executable: t.tool.Executable}
		v, err := ws.engine.Version(cmd.Context(), t.tool)
		if err != nil {
			tv.Error = err.Error()
			tv.Generation = phpcs.GenerationUnknown.String()
		} else {
			tv.Version = strings.TrimPrefix(v.Semver, "v")
			tv.Generation = v.Generation.String()
		}
		out = append(out, tv)
	}
	return out, nil
}

func renderVersionPretty(out io.Writer, info versionInfo, opts versionOptions) {
	fmt.Fprintf(out, "phpsniff %s\n", version.Colored(info.Version))
	if opts.showHash {
		fmt.Fprintf(out, "commit: %s\n", valueOrUnknown(info.GitCommit))
	}
	if opts.showDate {
		fmt.Fprintf(out, "built:  %s\n", valueOrUnknown(info.BuildDate))
	}
	for _, t := range info.Tools {
		if t.Error != "" {
			fmt.Fprintf(out, "%-7s %s: %s\n", t.Name+":", t.Executable, t.Error)
			continue
		}
		fmt.Fprintf(out, "%-7s %s %s (%s exit codes)\n", t.Name+":", t.Executable, version.Colored(t.Version), t.Generation)
	}
}

func renderVersionJSON(out io.Writer, info versionInfo, opts versionOptions) error {
	payload := versionPayload{
		Tool:    "phpsniff",
		Version: info.Version,
		Tools:   info.Tools,
	}
	if opts.showHash {
		payload.GitCommit = valueOrUnknown(info.GitCommit)
	}
	if opts.showDate {
		payload.BuildDate = valueOrUnknown(info.BuildDate)
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}

func valueOrUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
