// Command likebook lists, downloads, uploads, and deletes books on a
// WiFi Book Transfer e-reader. Without --host it scans the local subnets
// for the device first.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/pablogventura/likebook-wifi-book-uploader/discover"
	"github.com/pablogventura/likebook-wifi-book-uploader/tool"
	"github.com/pablogventura/likebook-wifi-book-uploader/transfer"
	"github.com/pablogventura/likebook-wifi-book-uploader/types"
)

type cliOptions struct {
	Host        string
	Port        int
	Download    string
	OutputDir   string
	Upload      []string
	Delete      string
	Yes         bool
	LogMode     string
	ScanTimeout time.Duration
	Interface   string
	Ping        bool
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "likebook",
		Short: "Manage books on a WiFi Book Transfer e-reader",
		Long: `likebook talks to the WiFi file-transfer service of Likebook-style
e-readers. Run it without arguments to discover the device on the local
network and list its books; use the flags to download, upload, or delete.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := readCLIOptions(cmd)
			if err != nil {
				return err
			}
			return run(cmd.Context(), opts, cmd.OutOrStdout(), cmd.InOrStdin())
		},
	}

	cmd.Flags().StringP("host", "H", "", "Device address; skips discovery")
	cmd.Flags().IntP("port", "p", discover.DefaultPort, "Device service port")
	cmd.Flags().StringP("download", "g", "", "Download the book given by name or index")
	cmd.Flags().StringP("output", "o", ".", "Directory to save downloads into")
	cmd.Flags().StringArrayP("upload", "u", nil, "Upload a file (repeatable)")
	cmd.Flags().StringP("delete", "d", "", "Delete the book given by name or index")
	cmd.Flags().BoolP("yes", "y", false, "Skip the delete confirmation prompt")
	cmd.Flags().String("log", "prod", "Log mode: dev|prod|none")
	cmd.Flags().Duration("timeout", discover.DefaultScanTimeout, "Overall discovery timeout")
	cmd.Flags().String("interface", "", "Scan only this network interface")
	cmd.Flags().Bool("ping", false, "Ping hosts before probing them during discovery")
	return cmd
}

func readCLIOptions(cmd *cobra.Command) (cliOptions, error) {
	var opts cliOptions
	var err error

	if opts.Host, err = cmd.Flags().GetString("host"); err != nil {
		return opts, err
	}
	if opts.Port, err = cmd.Flags().GetInt("port"); err != nil {
		return opts, err
	}
	if opts.Download, err = cmd.Flags().GetString("download"); err != nil {
		return opts, err
	}
	if opts.OutputDir, err = cmd.Flags().GetString("output"); err != nil {
		return opts, err
	}
	if opts.Upload, err = cmd.Flags().GetStringArray("upload"); err != nil {
		return opts, err
	}
	if opts.Delete, err = cmd.Flags().GetString("delete"); err != nil {
		return opts, err
	}
	if opts.Yes, err = cmd.Flags().GetBool("yes"); err != nil {
		return opts, err
	}
	if opts.LogMode, err = cmd.Flags().GetString("log"); err != nil {
		return opts, err
	}
	if opts.ScanTimeout, err = cmd.Flags().GetDuration("timeout"); err != nil {
		return opts, err
	}
	if opts.Interface, err = cmd.Flags().GetString("interface"); err != nil {
		return opts, err
	}
	if opts.Ping, err = cmd.Flags().GetBool("ping"); err != nil {
		return opts, err
	}

	if opts.Port <= 0 || opts.Port > 65535 {
		return opts, fmt.Errorf("--port must be between 1 and 65535, got %d", opts.Port)
	}
	if opts.OutputDir == "" {
		return opts, fmt.Errorf("--output must not be empty")
	}
	return opts, nil
}

func run(ctx context.Context, opts cliOptions, out io.Writer, in io.Reader) error {
	logger := tool.NewLogger(opts.LogMode)

	device, err := resolveDevice(ctx, opts, logger)
	if err != nil {
		return err
	}

	client := transfer.NewClient(transfer.Config{
		Device: device,
		Logger: logger,
	})

	requested := false
	if len(opts.Upload) > 0 {
		requested = true
		if err := runUpload(ctx, client, opts.Upload, out); err != nil {
			return err
		}
	}
	if opts.Delete != "" {
		requested = true
		if err := runDelete(ctx, client, opts, out, in); err != nil {
			return err
		}
	}
	if opts.Download != "" {
		requested = true
		path, err := client.Download(ctx, opts.Download, opts.OutputDir)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Saved: %s\n", path)
	}

	if !requested {
		return runList(ctx, client, device, out)
	}
	return nil
}

// resolveDevice honors --host when given, otherwise scans the subnets.
func resolveDevice(ctx context.Context, opts cliOptions, logger *log.Logger) (types.DeviceAddress, error) {
	if opts.Host != "" {
		return types.DeviceAddress{Host: opts.Host, Port: opts.Port}, nil
	}

	scanner := discover.NewScanner(discover.Config{
		Port:          opts.Port,
		ScanTimeout:   opts.ScanTimeout,
		InterfaceName: opts.Interface,
		UseICMP:       opts.Ping,
		Logger:        logger,
	})
	logger.Infof("Scanning the local network for a device on port %d...", opts.Port)
	return scanner.Scan(ctx)
}

func runList(ctx context.Context, client *transfer.Client, device types.DeviceAddress, out io.Writer) error {
	books, err := client.List(ctx)
	if err != nil {
		return err
	}
	if len(books) == 0 {
		fmt.Fprintln(out, "No books found.")
		return nil
	}
	fmt.Fprintf(out, "Books on %s (%d):\n", device.HostPort(), len(books))
	for _, b := range books {
		if b.Size != "" {
			fmt.Fprintf(out, "  %d. %s  (%s)\n", b.Index, b.Name, b.Size)
		} else {
			fmt.Fprintf(out, "  %d. %s\n", b.Index, b.Name)
		}
	}
	return nil
}

func runUpload(ctx context.Context, client *transfer.Client, paths []string, out io.Writer) error {
	results := client.Upload(ctx, paths)
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Fprintf(out, "Upload failed: %s: %v\n", r.Path, r.Err)
		} else {
			fmt.Fprintf(out, "Uploaded: %s\n", r.Name)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d uploads failed", failed, len(results))
	}
	return nil
}

func runDelete(ctx context.Context, client *transfer.Client, opts cliOptions, out io.Writer, in io.Reader) error {
	var confirm transfer.ConfirmFunc
	if !opts.Yes {
		reader := bufio.NewReader(in)
		confirm = func(name string) bool {
			fmt.Fprintf(out, "Delete '%s'? [y/N]: ", name)
			line, err := reader.ReadString('\n')
			if err != nil && line == "" {
				return false
			}
			return isAffirmative(line)
		}
	}
	return client.Delete(ctx, opts.Delete, confirm)
}

// isAffirmative accepts the same answers as the device's stock companion
// script, Spanish ones included.
func isAffirmative(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "s", "si", "sí", "y", "yes":
		return true
	}
	return false
}

func main() {
	cmd := newRootCmd()
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
