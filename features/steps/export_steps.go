//go:build integration

package steps

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	appdist "clipscribe/application/distribution"
	"clipscribe/application/export"
	"clipscribe/domain/transcript"
	"clipscribe/infrastructure/drive"

	"github.com/cucumber/godog"
	googledrive "google.golang.org/api/drive/v3"
)

// exportContext holds test state for export scenarios
type exportContext struct {
	tempDir    string
	transcript *transcript.Result

	driveService *exportMockDriveService
	folderID     string
	keep         int

	rendered *export.Rendered
	output   *export.Output
	err      error
}

// SharedExportContext is reset before each scenario via Before hook
var SharedExportContext *exportContext

// exportMockDriveService is an in-memory Drive folder
type exportMockDriveService struct {
	files   []*googledrive.File
	deleted []string
	nextID  int
}

var nameQuery = regexp.MustCompile(`name = '([^']*)'`)

func (m *exportMockDriveService) ListFiles(ctx context.Context, query string, fields string, orderBy string) ([]*googledrive.File, error) {
	match := nameQuery.FindStringSubmatch(query)
	var result []*googledrive.File
	for _, f := range m.files {
		if match != nil && f.Name != match[1] {
			continue
		}
		result = append(result, f)
	}
	return result, nil
}

func (m *exportMockDriveService) UploadFile(ctx context.Context, fileName, mimeType, folderID, localPath string) (*googledrive.File, error) {
	if _, err := os.Stat(localPath); err != nil {
		return nil, err
	}
	f := &googledrive.File{
		Id:          "uploaded-id",
		Name:        fileName,
		MimeType:    mimeType,
		CreatedTime: time.Now().UTC().Format(time.RFC3339),
	}
	m.files = append(m.files, f)
	return f, nil
}

func (m *exportMockDriveService) CreatePermission(ctx context.Context, fileID string, permission *googledrive.Permission) error {
	return nil
}

func (m *exportMockDriveService) DeleteFile(ctx context.Context, fileID string) error {
	for i, f := range m.files {
		if f.Id == fileID {
			m.deleted = append(m.deleted, f.Name)
			m.files = append(m.files[:i], m.files[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("file %s not found", fileID)
}

func InitializeExportScenario(ctx *godog.ScenarioContext) {
	ctx.Before(func(c context.Context, sc *godog.Scenario) (context.Context, error) {
		tempDir, err := os.MkdirTemp("", "export-test-*")
		if err != nil {
			return c, err
		}
		SharedExportContext = &exportContext{
			tempDir:      tempDir,
			driveService: &exportMockDriveService{},
		}
		return c, nil
	})

	ctx.After(func(c context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		if SharedExportContext != nil && SharedExportContext.tempDir != "" {
			os.RemoveAll(SharedExportContext.tempDir)
		}
		return c, nil
	})

	ctx.Step(`^a transcript in language "([^"]*)" with segments:$`, aTranscriptInLanguageWithSegments)
	ctx.Step(`^the Drive folder "([^"]*)" contains transcripts:$`, theDriveFolderContainsTranscripts)
	ctx.Step(`^Drive keeps the newest (\d+) transcripts$`, driveKeepsTheNewestTranscripts)
	ctx.Step(`^I render the transcript as "([^"]*)"$`, iRenderTheTranscriptAs)
	ctx.Step(`^I render the transcript as "([^"]*)" searching for "([^"]*)"$`, iRenderTheTranscriptAsSearchingFor)
	ctx.Step(`^I export the transcript as "([^"]*)" with upload$`, iExportTheTranscriptWithUpload)
	ctx.Step(`^I export the transcript as "([^"]*)" with upload but no Drive folder$`, iExportTheTranscriptWithUploadButNoFolder)
	ctx.Step(`^the rendered file name should match "([^"]*)"$`, theRenderedFileNameShouldMatch)
	ctx.Step(`^the rendered output should contain "([^"]*)"$`, theRenderedOutputShouldContain)
	ctx.Step(`^the rendered output should not contain "([^"]*)"$`, theRenderedOutputShouldNotContain)
	ctx.Step(`^the rendered output should start with "([^"]*)"$`, theRenderedOutputShouldStartWith)
	ctx.Step(`^the export should succeed$`, theExportShouldSucceed)
	ctx.Step(`^the export should fail with "([^"]*)"$`, theExportShouldFailWith)
	ctx.Step(`^the saved file should exist$`, theSavedFileShouldExist)
	ctx.Step(`^the shareable link should be "([^"]*)"$`, theShareableLinkShouldBe)
	ctx.Step(`^the Drive file "([^"]*)" should be deleted$`, theDriveFileShouldBeDeleted)
}

func getExportContext() *exportContext {
	return SharedExportContext
}

func aTranscriptInLanguageWithSegments(language string, table *godog.Table) error {
	segments, err := segmentsFromTable(table)
	if err != nil {
		return err
	}
	r := &transcript.Result{Language: language, Segments: segments}
	r.Normalize()
	getExportContext().transcript = r
	return nil
}

func theDriveFolderContainsTranscripts(folderID string, table *godog.Table) error {
	c := getExportContext()
	c.folderID = folderID
	for i, row := range table.Rows {
		if i == 0 {
			continue
		}
		c.driveService.nextID++
		c.driveService.files = append(c.driveService.files, &googledrive.File{
			Id:          fmt.Sprintf("existing-%d", c.driveService.nextID),
			Name:        row.Cells[0].Value,
			CreatedTime: row.Cells[1].Value,
			Size:        512,
		})
	}
	return nil
}

func driveKeepsTheNewestTranscripts(keep int) error {
	getExportContext().keep = keep
	return nil
}

func (c *exportContext) service(withDrive bool) (*export.Service, error) {
	opts := []export.ServiceOption{export.WithOutput(&bytes.Buffer{})}
	if withDrive {
		client, err := drive.NewClient(context.Background(), "", drive.WithDriveService(c.driveService))
		if err != nil {
			return nil, err
		}
		opts = append(opts,
			export.WithUploader(appdist.NewUploadService(client, c.folderID, nil)),
			export.WithPruner(appdist.NewCleanupService(client, c.folderID), c.keep),
		)
	}
	return export.NewService(c.tempDir, opts...), nil
}

func iRenderTheTranscriptAs(format string) error {
	return iRenderTheTranscriptAsSearchingFor(format, "")
}

func iRenderTheTranscriptAsSearchingFor(format, search string) error {
	c := getExportContext()
	f, err := transcript.ParseFormat(format)
	if err != nil {
		c.err = err
		return nil
	}
	svc, err := c.service(false)
	if err != nil {
		return err
	}
	c.rendered, c.err = svc.Render(c.transcript, f, search)
	return nil
}

func iExportTheTranscriptWithUpload(format string) error {
	return getExportContext().export(format, true)
}

func iExportTheTranscriptWithUploadButNoFolder(format string) error {
	return getExportContext().export(format, false)
}

func (c *exportContext) export(format string, withDrive bool) error {
	f, err := transcript.ParseFormat(format)
	if err != nil {
		return err
	}
	svc, err := c.service(withDrive)
	if err != nil {
		return err
	}
	c.output, c.err = svc.Export(context.Background(), export.Input{
		Transcript: c.transcript,
		Format:     f,
		Upload:     true,
	})
	return nil
}

func theRenderedFileNameShouldMatch(pattern string) error {
	c := getExportContext()
	if c.rendered == nil {
		return fmt.Errorf("nothing was rendered: %v", c.err)
	}
	if !regexp.MustCompile(pattern).MatchString(c.rendered.FileName) {
		return fmt.Errorf("file name %q does not match %s", c.rendered.FileName, pattern)
	}
	return nil
}

func theRenderedOutputShouldContain(expected string) error {
	c := getExportContext()
	if c.rendered == nil || !strings.Contains(string(c.rendered.Data), expected) {
		return fmt.Errorf("expected rendered output to contain %q", expected)
	}
	return nil
}

func theRenderedOutputShouldNotContain(unexpected string) error {
	c := getExportContext()
	if c.rendered != nil && strings.Contains(string(c.rendered.Data), unexpected) {
		return fmt.Errorf("expected rendered output not to contain %q:\n%s", unexpected, c.rendered.Data)
	}
	return nil
}

func theRenderedOutputShouldStartWith(prefix string) error {
	c := getExportContext()
	if c.rendered == nil || !strings.HasPrefix(string(c.rendered.Data), prefix) {
		return fmt.Errorf("expected rendered output to start with %q", prefix)
	}
	return nil
}

func theExportShouldSucceed() error {
	if err := getExportContext().err; err != nil {
		return fmt.Errorf("expected success, got: %w", err)
	}
	return nil
}

func theExportShouldFailWith(expected string) error {
	c := getExportContext()
	if c.err == nil || !strings.Contains(c.err.Error(), expected) {
		return fmt.Errorf("expected error containing %q, got %v", expected, c.err)
	}
	return nil
}

func theSavedFileShouldExist() error {
	c := getExportContext()
	if c.output == nil {
		return fmt.Errorf("nothing was exported")
	}
	if _, err := os.Stat(c.output.Path); err != nil {
		return fmt.Errorf("saved file missing: %w", err)
	}
	return nil
}

func theShareableLinkShouldBe(expected string) error {
	c := getExportContext()
	if c.output == nil || c.output.ShareableURL != expected {
		return fmt.Errorf("expected link %q, got %+v", expected, c.output)
	}
	return nil
}

func theDriveFileShouldBeDeleted(name string) error {
	for _, deleted := range getExportContext().driveService.deleted {
		if deleted == name {
			return nil
		}
	}
	return fmt.Errorf("expected %s to be deleted, deleted: %v", name, getExportContext().driveService.deleted)
}
