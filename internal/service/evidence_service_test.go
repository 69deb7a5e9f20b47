package service

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/pesio-ai/be-plt-grc/internal/apperrors"
	"github.com/pesio-ai/be-plt-grc/internal/domain"
	"github.com/pesio-ai/be-plt-grc/internal/logger"
	"github.com/pesio-ai/be-plt-grc/internal/repository/memory"
)

func setupEvidence(t *testing.T) (*EvidenceService, *fakeBlobs) {
	t.Helper()
	blobs := newFakeBlobs()
	svc := NewEvidenceService(memory.New().Evidence(), blobs, logger.Nop())
	svc.now = steppingClock()
	svc.newID = sequentialIDs("ev")
	return svc, blobs
}

func TestUploadEvidence(t *testing.T) {
	tests := []struct {
		name     string
		sess     *domain.Session
		req      *UploadRequest
		wantCode apperrors.Code
	}{
		{
			name: "compliance evidence",
			sess: writerSession(),
			req:  &UploadRequest{Category: "compliance", EntityID: "ctl-1", FileName: "policy.pdf", Body: strings.NewReader("pdf")},
		},
		{
			name: "path components are stripped",
			sess: writerSession(),
			req:  &UploadRequest{Category: "vapt", FileName: "../../etc/passwd", Body: strings.NewReader("x")},
		},
		{
			name:     "unknown category",
			sess:     writerSession(),
			req:      &UploadRequest{Category: "hr", FileName: "a.txt", Body: strings.NewReader("x")},
			wantCode: apperrors.ErrCodeValidation,
		},
		{
			name:     "viewer cannot upload",
			sess:     viewerSession(),
			req:      &UploadRequest{Category: "privacy", FileName: "a.txt", Body: strings.NewReader("x")},
			wantCode: apperrors.ErrCodeForbidden,
		},
		{
			name:     "missing file",
			sess:     writerSession(),
			req:      &UploadRequest{Category: "privacy", FileName: "a.txt"},
			wantCode: apperrors.ErrCodeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, blobs := setupEvidence(t)
			f, err := svc.Upload(context.Background(), tt.sess, tt.req)
			if tt.wantCode != "" {
				assertCode(t, err, tt.wantCode)
				return
			}
			if err != nil {
				t.Fatalf("Upload() error = %v", err)
			}
			if strings.Contains(f.FileName, "/") {
				t.Errorf("FileName = %q still has path separators", f.FileName)
			}
			if _, ok := blobs.files[f.StoragePath]; !ok {
				t.Errorf("blob %q not stored", f.StoragePath)
			}
		})
	}
}

func TestUploadEvidenceStorageFailure(t *testing.T) {
	svc, blobs := setupEvidence(t)
	blobs.err = errBoom

	_, err := svc.Upload(context.Background(), writerSession(), &UploadRequest{Category: "vapt", FileName: "a.txt", Body: strings.NewReader("x")})
	assertCode(t, err, apperrors.ErrCodeUnavailable)
}

func TestListAndDeleteEvidence(t *testing.T) {
	ctx := context.Background()
	svc, blobs := setupEvidence(t)
	writer := writerSession()

	vapt, _ := svc.Upload(ctx, writer, &UploadRequest{Category: "vapt", FileName: "scan.xml", Body: strings.NewReader("x")})
	_, _ = svc.Upload(ctx, writer, &UploadRequest{Category: "privacy", FileName: "dpia.docx", Body: strings.NewReader("x")})

	vaptOnly := sessionWith(domain.RoleAnalyst, domain.Permissions{domain.ModuleVAPT: {Read: true}})
	got, err := svc.ListEvidence(ctx, vaptOnly, "", "")
	if err != nil {
		t.Fatalf("ListEvidence() error = %v", err)
	}
	if len(got) != 1 || got[0].Category != "vapt" {
		t.Errorf("ListEvidence() = %+v, want only vapt", got)
	}
	_, err = svc.ListEvidence(ctx, vaptOnly, "privacy", "")
	assertCode(t, err, apperrors.ErrCodeForbidden)

	assertCode(t, svc.DeleteEvidence(ctx, vaptOnly, vapt.ID), apperrors.ErrCodeForbidden)
	if err := svc.DeleteEvidence(ctx, writer, vapt.ID); err != nil {
		t.Fatalf("DeleteEvidence() error = %v", err)
	}
	if len(blobs.removed) != 1 || blobs.removed[0] != vapt.StoragePath {
		t.Errorf("removed = %v", blobs.removed)
	}
	assertCode(t, svc.DeleteEvidence(ctx, writer, vapt.ID), apperrors.ErrCodeNotFound)
}

func TestOpenEvidence(t *testing.T) {
	ctx := context.Background()
	svc, blobs := setupEvidence(t)

	f, err := svc.Upload(ctx, writerSession(), &UploadRequest{Category: "compliance", FileName: "policy.pdf", Body: strings.NewReader("policy text")})
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	meta, rc, err := svc.OpenEvidence(ctx, viewerSession(), f.ID)
	if err != nil {
		t.Fatalf("OpenEvidence() error = %v", err)
	}
	data, _ := io.ReadAll(rc)
	rc.Close()
	if meta.FileName != "policy.pdf" || string(data) != "policy text" {
		t.Errorf("OpenEvidence() = %q, %q", meta.FileName, data)
	}

	noCompliance := sessionWith(domain.RoleAnalyst, domain.Permissions{domain.ModuleVAPT: {Read: true}})
	_, _, err = svc.OpenEvidence(ctx, noCompliance, f.ID)
	assertCode(t, err, apperrors.ErrCodeForbidden)

	delete(blobs.files, f.StoragePath)
	_, _, err = svc.OpenEvidence(ctx, viewerSession(), f.ID)
	assertCode(t, err, apperrors.ErrCodeNotFound)
}
