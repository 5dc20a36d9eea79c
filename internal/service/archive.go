package service

import (
	"context"
	"fmt"
	"mime"
	"net/url"
	"path"
	"strings"

	"github.com/timmy/lookaloud/internal/storage"
)

// AudioFetcher downloads narration audio.
type AudioFetcher interface {
	FetchAudio(ctx context.Context, audioURL string) (*AudioFile, error)
}

// AudioArchiver copies narration audio from the backend into object storage.
type AudioArchiver struct {
	fetcher AudioFetcher
	store   storage.AudioStore
	prefix  string
}

// NewAudioArchiver creates an archiver writing keys under prefix.
func NewAudioArchiver(fetcher AudioFetcher, store storage.AudioStore, prefix string) *AudioArchiver {
	return &AudioArchiver{
		fetcher: fetcher,
		store:   store,
		prefix:  strings.Trim(prefix, "/"),
	}
}

// Archive downloads audioURL and stores it under
// <prefix>/<submissionID><ext>. It returns the storage key. When the URL
// names the extension and that key is already stored, nothing is fetched.
func (a *AudioArchiver) Archive(ctx context.Context, submissionID, audioURL string) (string, error) {
	audioURL = StripCacheBuster(audioURL)
	if ext := urlExt(audioURL); ext != "" {
		key := a.key(submissionID, ext)
		exists, err := a.store.Exists(ctx, key)
		if err != nil {
			return "", fmt.Errorf("failed to check archive: %w", err)
		}
		if exists {
			return key, nil
		}
	}

	file, err := a.fetcher.FetchAudio(ctx, audioURL)
	if err != nil {
		return "", fmt.Errorf("failed to fetch audio: %w", err)
	}

	contentType := file.ContentType
	if contentType == "" {
		contentType = mime.TypeByExtension(path.Ext(file.Name))
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := a.key(submissionID, archiveExt(file.Name, contentType))
	if err := a.store.Put(ctx, key, file.Data, contentType); err != nil {
		return "", fmt.Errorf("failed to store audio: %w", err)
	}
	return key, nil
}

// URL returns where an archived key can be fetched from.
func (a *AudioArchiver) URL(key string) string {
	return a.store.URL(key)
}

// Open reads archived audio back from storage.
func (a *AudioArchiver) Open(ctx context.Context, key string) (*AudioFile, error) {
	obj, err := a.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	return &AudioFile{Name: path.Base(key), ContentType: obj.ContentType, Data: obj.Data}, nil
}

func (a *AudioArchiver) key(submissionID, ext string) string {
	if a.prefix == "" {
		return submissionID + ext
	}
	return a.prefix + "/" + submissionID + ext
}

// urlExt returns the extension of the URL path, if any.
func urlExt(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return path.Ext(u.Path)
}

func archiveExt(name, contentType string) string {
	if ext := path.Ext(name); ext != "" {
		return ext
	}
	mediaType, _, _ := mime.ParseMediaType(contentType)
	switch mediaType {
	case "audio/mpeg":
		return ".mp3"
	case "audio/wav", "audio/x-wav", "audio/wave":
		return ".wav"
	case "audio/ogg":
		return ".ogg"
	}
	return ""
}
