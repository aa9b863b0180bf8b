// Package media provides the video/audio extractor.
//
// Video files in the source directory are transcoded to mp3 with ffmpeg
// into a sibling audio directory, then every audio file is transcribed
// and returned as one Document per recording.
//
// When the drive extractor stages videos concurrently, the extractor can
// wait for the staging marker before it lists the source directory.
package media
