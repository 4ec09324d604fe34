/*
Package upload stores preprocessed images and hands back a stable URL the
generation service can fetch.

[LocalStore] is the default [Client]. Blobs are content-addressed by their
BLAKE2b-256 digest plus an extension derived from the MIME type, so the
same bytes always produce the same key and URL:

	store, err := upload.NewLocalStore("/uploads", "https://studio.example.com", db)
	res, err := store.Upload(ctx, upload.Blob{Name: "cat.jpg", MimeType: "image/jpeg", Data: data})
	// res.ImageURL == "https://studio.example.com/uploads/<digest>.jpg"

Writes go to a temporary file in the same directory and are renamed into
place. Stat, open and rename retry on NFS stale file handles.
*/
package upload
