// Package objectstore archives generated images in an S3-compatible bucket
// and returns their public URLs.
package objectstore
