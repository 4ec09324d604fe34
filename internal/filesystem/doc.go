/*
Package filesystem wraps os.Stat, os.Open and os.Rename with retry logic for
NFS stale file handle errors (ESTALE).

The upload and database directories are often network mounts in container
deployments. Only ESTALE triggers a retry; every other error is returned
immediately.

	info, err := filesystem.StatWithRetry(path, filesystem.DefaultRetryConfig())

	f, err := filesystem.OpenWithRetry(path, filesystem.DefaultRetryConfig())
	if err != nil {
	    return err
	}
	defer f.Close()

# Retry Behavior

Defaults: 3 retries, 50ms initial backoff doubling up to 500ms.

# Metrics

Operations are labelled by volume through a [VolumeResolver] set with
[SetDefaultVolumeResolver]. Recording goes through an [Observer] registered
with [SetObserver]; without one, nothing is recorded.
*/
package filesystem
