package artefact

import "strings"

// Folder returns folder with a trailing slash, or "" for the bucket root.
func Folder(folder string) string {
	if folder == "" || strings.HasSuffix(folder, "/") {
		return folder
	}
	return folder + "/"
}

// ObjectKey joins a folder and a filename into a bucket key.
func ObjectKey(folder, filename string) string {
	return Folder(folder) + filename
}

// Location renders bucket and key as "bucket/key".
func Location(bucket, key string) string {
	return bucket + "/" + key
}
