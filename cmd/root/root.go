package root

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/coget/coget/pkg/cli"
	"github.com/coget/coget/pkg/client"
	"github.com/coget/coget/pkg/config"
	"github.com/coget/coget/pkg/download"
)

const rootLongDesc = `
coget

Coget is a concurrent file downloader. It splits a remote file into byte
ranges, fetches the ranges in parallel over plain HTTP range requests, and
merges the pieces back into a single file once all of them are complete.

Each part is retried independently, so one flaky connection costs one part's
retries, not the whole download. Parts that did complete stay on disk: a
later invocation with --merge picks them up instead of fetching everything
again. With --single-part, one specific part is fetched and left on disk,
which spreads a very large download across machines or invocations.

If the downloaded file is a tar or zip archive, coget can unpack it next to
the output file after the merge, with gzip, bzip2, xz and lz4 compression
detected automatically.
`

type runAction int

const (
	actionDownload runAction = iota
	actionSinglePart
	actionMerge
)

func GetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "coget [flags] <url>",
		Short: "coget",
		Long:  rootLongDesc,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.PersistentStartupProcessFlags()
		},
		RunE:          runRootCMD,
		Args:          cobra.ExactArgs(1),
		SilenceErrors: true,
		Example:       `  coget -n 16 https://example.com/weights.bin`,
	}
	cmd.Flags().IntP(config.OptNumParts, "n", 0, "Number of parts to split the download into (default: the concurrency value)")
	cmd.Flags().String(config.OptChunkSize, "", "Size per part, e.g. 50MB; values under 10MB are ignored")
	cmd.Flags().IntP(config.OptSinglePart, "s", -1, "Download only the part with this index and keep its part file")
	cmd.Flags().BoolP(config.OptMerge, "m", false, "Merge part files from earlier invocations instead of downloading")
	cmd.Flags().StringP(config.OptOutput, "o", "", "Output filename (default: the last path segment of the url)")
	cmd.Flags().StringP(config.OptUsername, "u", "", "Username for basic auth")
	cmd.Flags().StringP(config.OptPassword, "p", "", "Password for basic auth")
	cmd.Flags().StringArray(config.OptMirror, nil, "Additional url serving the same file, may be repeated")
	cmd.Flags().BoolP(config.OptExtract, "x", false, "Extract the archive after a successful download")
	cmd.SetUsageTemplate(cli.UsageTemplate)
	err := config.AddRootPersistentFlags(cmd)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	return cmd
}

func runRootCMD(cmd *cobra.Command, args []string) error {
	// After we run through the PreRun functions we want to silence usage
	// from being printed on all errors
	cmd.SilenceUsage = true

	urlString := args[0]
	output := viper.GetString(config.OptOutput)
	if output == "" {
		derived, err := cli.OutputFilename(urlString)
		if err != nil {
			return err
		}
		output = derived
	}

	log.Info().
		Str("url", urlString).
		Str("output", output).
		Msg("Initiating")

	mode, err := resolvePartitionMode(cmd, os.Args[1:])
	if err != nil {
		return err
	}
	action, partIndex := resolveAction(cmd, os.Args[1:])

	// Only actions that write the merged output guard against clobbering
	// it. Part files are rewritten freely, that is the retry contract.
	if action != actionSinglePart {
		if err := cli.EnsureDestinationNotExist(output); err != nil {
			return err
		}
	}

	return rootExecute(cmd.Context(), urlString, output, mode, action, partIndex)
}

// rootExecute builds the downloader from the resolved configuration and
// runs the selected action, reporting the result on the console.
func rootExecute(ctx context.Context, urlString, output string, mode download.PartitionMode, action runAction, partIndex int) error {
	clientOpts := client.Options{
		Timeout:        viper.GetDuration(config.OptTimeout),
		ConnectTimeout: viper.GetDuration(config.OptConnTimeout),
		Username:       viper.GetString(config.OptUsername),
		Password:       viper.GetString(config.OptPassword),
	}
	downloadOpts := download.Options{
		Workers:          viper.GetInt(config.OptConcurrency),
		MaxAttempts:      viper.GetInt(config.OptRetries),
		Mode:             mode,
		Extract:          viper.GetBool(config.OptExtract),
		ExtractOverwrite: viper.GetBool(config.OptForce),
		Client:           clientOpts,
	}
	downloader := download.NewDownloader(downloadOpts)
	res := download.Resource{
		URL:     urlString,
		Mirrors: viper.GetStringSlice(config.OptMirror),
	}

	switch action {
	case actionSinglePart:
		if err := downloader.RunSinglePart(ctx, res, output, partIndex); err != nil {
			return err
		}
		cli.PrintSuccess(fmt.Sprintf("downloaded part %d of %s", partIndex, output))
	case actionMerge:
		if err := downloader.RunMergeOnly(ctx, res, output); err != nil {
			return err
		}
		cli.PrintSuccess(fmt.Sprintf("merged %s", output))
	default:
		if err := downloader.Run(ctx, res, output); err != nil {
			return err
		}
		cli.PrintSuccess(fmt.Sprintf("downloaded %s", output))
	}
	return nil
}

// resolvePartitionMode turns the partitioning flags into a single mode.
// When both --num-parts and --chunk-size are given, the one specified later
// on the command line wins, same as repeating one flag twice.
func resolvePartitionMode(cmd *cobra.Command, arguments []string) (download.PartitionMode, error) {
	numPartsSet := cmd.Flags().Changed(config.OptNumParts)
	chunkSizeSet := cmd.Flags().Changed(config.OptChunkSize)

	useChunkSize := chunkSizeSet
	if numPartsSet && chunkSizeSet {
		useChunkSize = lastFlagIndex(arguments, config.OptChunkSize, "") > lastFlagIndex(arguments, config.OptNumParts, "n")
	}

	if useChunkSize {
		chunkSize, err := humanize.ParseBytes(viper.GetString(config.OptChunkSize))
		if err != nil {
			return download.PartitionMode{}, fmt.Errorf("invalid %s: %w", config.OptChunkSize, err)
		}
		if int64(chunkSize) >= download.MinChunkSize {
			return download.ByChunkSize(int64(chunkSize)), nil
		}
		cli.PrintWarning(fmt.Sprintf("%s of %s is below the %s minimum, splitting by count instead",
			config.OptChunkSize, humanize.Bytes(chunkSize), humanize.Bytes(uint64(download.MinChunkSize))))
	}

	numParts := viper.GetInt(config.OptConcurrency)
	if numPartsSet {
		numParts = viper.GetInt(config.OptNumParts)
	}
	if numParts <= 0 {
		return download.PartitionMode{}, fmt.Errorf("%s must be positive, got %d", config.OptNumParts, numParts)
	}
	return download.ByCount(numParts), nil
}

// resolveAction picks between the full download, single-part and merge-only
// actions. --single-part and --merge contradict each other, the one
// specified later on the command line wins.
func resolveAction(cmd *cobra.Command, arguments []string) (runAction, int) {
	singleSet := cmd.Flags().Changed(config.OptSinglePart)
	mergeSet := cmd.Flags().Changed(config.OptMerge) && viper.GetBool(config.OptMerge)

	if singleSet && mergeSet {
		singleIdx := lastFlagIndex(arguments, config.OptSinglePart, "s")
		mergeIdx := lastFlagIndex(arguments, config.OptMerge, "m")
		if singleIdx > mergeIdx {
			mergeSet = false
		} else {
			singleSet = false
		}
	}

	switch {
	case singleSet:
		return actionSinglePart, viper.GetInt(config.OptSinglePart)
	case mergeSet:
		return actionMerge, 0
	default:
		return actionDownload, 0
	}
}

// lastFlagIndex returns the position of the final occurrence of a flag in
// the raw argument list, or -1. Long form, long form with =value, and the
// shorthand with or without an attached value are all recognized.
func lastFlagIndex(arguments []string, name, shorthand string) int {
	last := -1
	long := "--" + name
	short := "-" + shorthand
	for i, arg := range arguments {
		if arg == "--" {
			break
		}
		switch {
		case arg == long, strings.HasPrefix(arg, long+"="):
			last = i
		case shorthand != "" && strings.HasPrefix(arg, short) && !strings.HasPrefix(arg, "--"):
			last = i
		}
	}
	return last
}
