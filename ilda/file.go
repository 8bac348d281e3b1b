package ilda

import (
	"os"

	"github.com/sirupsen/logrus"
)

// DecodeFile reads and decodes an ILDA file from disk. Like Decode, a
// corrupt tail returns the frames decoded before it alongside the error.
func DecodeFile(path string) ([]Frame, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "DecodeFile",
			"path":     path,
			"error":    err.Error(),
		}).Error("Failed to read ILDA file")
		return nil, err
	}

	frames, decErr := Decode(data)

	logrus.WithFields(logrus.Fields{
		"function": "DecodeFile",
		"path":     path,
		"bytes":    len(data),
		"frames":   len(frames),
	}).Info("Decoded ILDA file")

	return frames, decErr
}
