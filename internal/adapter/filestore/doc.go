// Package filestore keeps state entries as files under a directory, one
// subdirectory per user and one file per key. Several processes sharing the
// directory see each other's writes through filesystem notifications.
package filestore
