package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/evidentry-project/evidentry/pkg/errclass"
	"github.com/evidentry-project/evidentry/pkg/fsutil"
	"github.com/evidentry-project/evidentry/pkg/model"
	"github.com/evidentry-project/evidentry/pkg/pathutil"
)

// IngestDocument copies srcPath into the content store, hashes it, and
// persists the document record. Content is immutable afterwards.
func (s *Store) IngestDocument(srcPath, ownerID, frameworkID, requirementID string, freshnessMonths int) (*model.Document, error) {
	fileName := filepath.Base(srcPath)
	if err := pathutil.ValidateFileName(fileName); err != nil {
		return nil, err
	}
	if frameworkID != "" {
		if err := pathutil.ValidateFrameworkID(frameworkID); err != nil {
			return nil, err
		}
	}

	src, err := os.Open(srcPath)
	if err != nil {
		return nil, errclass.ErrStorage.WithMessagef("open source file: %v", err)
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, errclass.ErrStorage.WithMessagef("read source file: %v", err)
	}

	sum := sha256.Sum256(data)
	doc := &model.Document{
		ID:              model.NewDocumentID(),
		OwnerID:         ownerID,
		FileName:        fileName,
		FileType:        strings.TrimPrefix(filepath.Ext(fileName), "."),
		SizeBytes:       int64(len(data)),
		ContentHash:     model.HashValue(hex.EncodeToString(sum[:])),
		UploadedAt:      time.Now().UTC(),
		FrameworkID:     frameworkID,
		RequirementID:   requirementID,
		Status:          model.DocumentPending,
		FreshnessMonths: freshnessMonths,
	}

	if err := fsutil.AtomicWrite(s.ContentPath(doc.ID), data, 0644); err != nil {
		return nil, errclass.ErrStorage.WithMessagef("store content: %v", err)
	}
	if err := s.SaveDocument(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// SaveDocument atomically writes a document record.
func (s *Store) SaveDocument(doc *model.Document) error {
	if !doc.Status.Valid() {
		return errclass.ErrValidation.WithMessagef("unknown document status %q", doc.Status)
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	return fsutil.AtomicWrite(s.documentPath(doc.ID), data, 0644)
}

// Document loads one document record.
func (s *Store) Document(id model.DocumentID) (*model.Document, error) {
	data, err := os.ReadFile(s.documentPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errclass.ErrNotFound.WithMessagef("document %s", id)
		}
		return nil, fmt.Errorf("read document: %w", err)
	}
	var doc model.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse document %s: %w", id, err)
	}
	return &doc, nil
}

// Documents returns all document records sorted by upload time (newest first).
func (s *Store) Documents() ([]*model.Document, error) {
	entries, err := os.ReadDir(s.dir("documents"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read documents directory: %w", err)
	}

	var docs []*model.Document
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		doc, err := s.Document(model.DocumentID(strings.TrimSuffix(entry.Name(), ".json")))
		if err != nil {
			// Skip corrupted records
			continue
		}
		docs = append(docs, doc)
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].UploadedAt.After(docs[j].UploadedAt) })
	return docs, nil
}

// VerifiedDocuments returns verified documents associated with any of the
// given frameworks, de-duplicated by document id.
func (s *Store) VerifiedDocuments(frameworkIDs []string) ([]*model.Document, error) {
	all, err := s.Documents()
	if err != nil {
		return nil, err
	}
	want := make(map[string]bool, len(frameworkIDs))
	for _, id := range frameworkIDs {
		want[id] = true
	}

	seen := make(map[model.DocumentID]bool)
	var out []*model.Document
	for _, doc := range all {
		if doc.Status != model.DocumentVerified || !want[doc.FrameworkID] || seen[doc.ID] {
			continue
		}
		seen[doc.ID] = true
		out = append(out, doc)
	}
	return out, nil
}

// ContentPath returns the immutable content location for a document.
func (s *Store) ContentPath(id model.DocumentID) string {
	return filepath.Join(s.dir("content"), string(id))
}

// ReadContent returns the stored bytes of a document.
func (s *Store) ReadContent(id model.DocumentID) ([]byte, error) {
	data, err := os.ReadFile(s.ContentPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errclass.ErrNotFound.WithMessagef("content for document %s", id)
		}
		return nil, errclass.ErrStorage.WithMessagef("read content: %v", err)
	}
	return data, nil
}

func (s *Store) documentPath(id model.DocumentID) string {
	return filepath.Join(s.dir("documents"), string(id)+".json")
}
