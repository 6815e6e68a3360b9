package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/fsindex/internal/upload"
)

var (
	uploadBucket string
	uploadPrefix string
)

var uploadCmd = &cobra.Command{
	Use:   "upload <dir>",
	Short: "Upload the files of a directory to S3",
	Long: `Upload every regular file directly under <dir> to an S3 bucket, keyed
by file name under an optional prefix. Subdirectories are not entered.

Credentials come from the default AWS chain (environment, shared config,
instance role).

Examples:
  fsindex upload ./exports --bucket my-archive
  fsindex upload ./exports --bucket my-archive --prefix 2026/08`,
	Args: cobra.ExactArgs(1),
	RunE: runUpload,
}

func init() {
	f := uploadCmd.Flags()
	f.StringVar(&uploadBucket, "bucket", "", "destination S3 bucket (required)")
	f.StringVar(&uploadPrefix, "prefix", "", "key prefix inside the bucket")
	_ = uploadCmd.MarkFlagRequired("bucket")
}

func runUpload(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	up, err := upload.NewFromConfig(ctx, uploadBucket, uploadPrefix, logger)
	if err != nil {
		return err
	}

	n, err := up.UploadDir(ctx, args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Uploaded %d files to s3://%s/%s\n", n, uploadBucket, uploadPrefix)
	return nil
}
