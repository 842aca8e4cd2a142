package ipa

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
)

// objectUploader is satisfied by *R2Client.
type objectUploader interface {
	UploadLocalFile(ctx context.Context, key, filePath string) error
}

// publishKey is <id>/<version>/<file name>.
func publishKey(id Identity, file string) string {
	return path.Join(id.ID, id.Version, filepath.Base(file))
}

// publishArtifacts uploads every archive and checksum the build produced and
// returns the object keys in upload order.
func publishArtifacts(ctx context.Context, up objectUploader, id Identity, results []Result) ([]string, error) {
	var keys []string
	for _, r := range results {
		for _, file := range r.Files() {
			key := publishKey(id, file)
			step("Uploading %s...", key)
			if err := up.UploadLocalFile(ctx, key, file); err != nil {
				return keys, fmt.Errorf("%w: %s: %v", ErrPublish, key, err)
			}
			keys = append(keys, key)
		}
	}
	return keys, nil
}
