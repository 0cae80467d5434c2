package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sync"
	"time"

	. "github.com/onsi/gomega"

	"visa-onboarding-service/internal/auth"
	"visa-onboarding-service/internal/domain"
)

type memoryFiles struct {
	mu      sync.Mutex
	objects map[string][]byte
	seq     int
}

func newMemoryFiles() *memoryFiles {
	return &memoryFiles{objects: make(map[string][]byte)}
}

func (m *memoryFiles) PutDocument(_ context.Context, employeeID, filename string, content []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	ref := fmt.Sprintf("%s/%d-%s", employeeID, m.seq, filename)
	m.objects[ref] = content
	return ref, nil
}

func (m *memoryFiles) PresignedURL(_ context.Context, ref string, _ time.Duration) (string, error) {
	return "https://files.test/" + ref, nil
}

type recordingReleases struct {
	mu   sync.Mutex
	refs []string
}

func (r *recordingReleases) EnqueueRelease(_ context.Context, rel domain.StorageRelease) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refs = append(r.refs, rel.StorageRef)
	return nil
}

func (r *recordingReleases) released() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.refs...)
}

type client struct {
	baseURL string
	token   string
}

func newClient(baseURL string, validator *auth.Validator, caller domain.Caller) client {
	token, err := validator.IssueToken(caller, time.Hour)
	Expect(err).ToNot(HaveOccurred())
	return client{baseURL: baseURL, token: token}
}

func (c client) do(req *http.Request, out any) int {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := http.DefaultClient.Do(req)
	Expect(err).ToNot(HaveOccurred())
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	Expect(err).ToNot(HaveOccurred())
	if out != nil && len(body) > 0 {
		Expect(json.Unmarshal(body, out)).To(Succeed())
	}
	return resp.StatusCode
}

func (c client) get(path string, out any) int {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+path, nil)
	Expect(err).ToNot(HaveOccurred())
	return c.do(req, out)
}

func (c client) postJSON(path string, payload any, out any) int {
	raw, err := json.Marshal(payload)
	Expect(err).ToNot(HaveOccurred())
	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	Expect(err).ToNot(HaveOccurred())
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c client) upload(docType domain.DocType, filename string, content []byte, out any) int {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	Expect(mw.WriteField("type", string(docType))).To(Succeed())
	part, err := mw.CreateFormFile("file", filename)
	Expect(err).ToNot(HaveOccurred())
	_, err = part.Write(content)
	Expect(err).ToNot(HaveOccurred())
	Expect(mw.Close()).To(Succeed())

	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/v1/visa/documents", &buf)
	Expect(err).ToNot(HaveOccurred())
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.do(req, out)
}

type stepEnvelope struct {
	Step  domain.Step `json:"step"`
	Error string      `json:"error"`
}

type listEnvelope struct {
	Items []domain.EmployeeStep `json:"items"`
}
