// Package source abstracts the folder that Auction Insights exports land in.
//
// Folder is implemented for Google Drive folders, Cloud Storage prefixes, and
// local directories. Every backend exposes the same four operations so the
// batch driver can list candidates, read them, write the filtered output next
// to them, and retire consumed inputs without knowing where they live.
package source
