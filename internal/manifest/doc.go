// Package manifest turns a signed Vimeo playlist URL into downloadable
// parcel URLs.
//
// ExtractBaseURL validates the playlist URL shape and derives the asset base
// without touching the network. Resolver fetches the playlist JSON with
// browser-like headers, decodes the video and audio collections, and builds a
// Resolution whose streams point at {base}/parcel/{kind}/{id}.mp4.
package manifest
