package uploader

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"time"

	"github.com/dfe-digital/nomination-uploader/internal/kissflow"
	"github.com/dfe-digital/nomination-uploader/internal/layout"
	"github.com/dfe-digital/nomination-uploader/internal/pdf"
	"github.com/dfe-digital/nomination-uploader/internal/structure"
)

// nomineeNamePattern matches the file names the form mailer produces, with
// the nominee's name in the capture group.
var nomineeNamePattern = regexp.MustCompile(`Honours nomination web form submitted for (.+)\.pdf`)

// careerSection is the index of the career and evidence section on the form.
const careerSection = 2

// Service orchestrates the nomination pipeline: PDF loading, layout and
// structure recovery, evidence upload, and workflow submission.
type Service struct {
	loader      *pdf.Loader
	structurer  *structure.Structurer
	client      *kissflow.Client
	files       *kissflow.Uploader
	nominations *fileBucket
	evidence    *fileBucket
	now         func() time.Time
}

// NewService wires the pipeline together. nominationDir holds incoming
// nomination PDFs; bucketDir holds the evidence files referenced by them.
func NewService(maxFileSize int64, nominationDir, bucketDir string, client *kissflow.Client, files *kissflow.Uploader) (*Service, error) {
	nominations, err := newFileBucket(nominationDir)
	if err != nil {
		return nil, fmt.Errorf("nomination directory: %w", err)
	}
	evidence, err := newFileBucket(bucketDir)
	if err != nil {
		return nil, fmt.Errorf("bucket directory: %w", err)
	}
	return &Service{
		loader:      pdf.NewLoader(maxFileSize),
		structurer:  structure.NewStructurer(),
		client:      client,
		files:       files,
		nominations: nominations,
		evidence:    evidence,
		now:         time.Now,
	}, nil
}

// ExtractNominationRequest identifies the nomination PDF to inspect. The
// path may be a bare file name, resolved against the nomination directory.
type ExtractNominationRequest struct {
	Path string
}

// ExtractNominationResult carries the recovered document tree and its text
// rendering.
type ExtractNominationResult struct {
	Path     string
	Document *structure.Document
	Text     string
	Sections int
}

// ExtractNomination runs the extraction pipeline without touching the
// workflow host.
func (s *Service) ExtractNomination(req ExtractNominationRequest) (*ExtractNominationResult, error) {
	path, doc, err := s.extract(req.Path)
	if err != nil {
		return nil, err
	}
	return &ExtractNominationResult{
		Path:     path,
		Document: doc,
		Text:     doc.String(),
		Sections: len(doc.Sections),
	}, nil
}

// UploadNominationRequest identifies the nomination PDF to submit.
type UploadNominationRequest struct {
	Path string
}

// UploadNominationResult reports the created case.
type UploadNominationResult struct {
	CaseID           string
	NomineeName      string
	SupportDocuments int
	NextStepURI      string
}

// UploadNomination runs the full pipeline: extract the document, upload the
// evidence files it names and the nomination itself, and submit a new case.
func (s *Service) UploadNomination(ctx context.Context, req UploadNominationRequest) (*UploadNominationResult, error) {
	path, doc, err := s.extract(req.Path)
	if err != nil {
		return nil, err
	}

	evidence, err := s.uploadEvidence(ctx, doc)
	if err != nil {
		return nil, err
	}

	fileName := filepath.Base(path)
	nominationURL, err := s.files.SendFile(ctx, path, fileName)
	if err != nil {
		return nil, fmt.Errorf("upload nomination %s: %w", fileName, err)
	}

	submission := kissflow.BuildSubmission(kissflow.SubmissionInput{
		Document:           doc,
		NominationFileName: fileName,
		NominationFileURL:  nominationURL,
		EvidenceFiles:      evidence,
		Now:                s.now(),
	})

	id, err := s.client.Submit(ctx, submission)
	if err != nil {
		return nil, fmt.Errorf("submit nomination: %w", err)
	}

	return &UploadNominationResult{
		CaseID:           id,
		NomineeName:      nomineeName(fileName),
		SupportDocuments: len(evidence),
		NextStepURI:      s.client.CaseInboxURL(kissflow.StepProvideInput, id),
	}, nil
}

func (s *Service) extract(reqPath string) (string, *structure.Document, error) {
	path, err := s.nominations.Resolve(reqPath)
	if err != nil {
		return "", nil, err
	}

	fragments, err := s.loader.LoadFragments(path)
	if err != nil {
		return "", nil, fmt.Errorf("load %s: %w", filepath.Base(path), err)
	}

	doc, err := s.structurer.Structure(layout.AssemblePhrases(fragments))
	if err != nil {
		return "", nil, fmt.Errorf("structure %s: %w", filepath.Base(path), err)
	}
	return path, doc, nil
}

// uploadEvidence sends the attachments the document names to file storage.
// Attachment names come from the evidence and support-letter tables in the
// career section. Names with no matching file in the bucket are skipped, so
// a nomination citing a file the nominator never sent still goes through
// with whatever evidence is actually there. All names are checked before the
// first upload so a bad name cannot leave earlier files orphaned on the host.
func (s *Service) uploadEvidence(ctx context.Context, doc *structure.Document) ([]kissflow.UploadedFile, error) {
	type attachment struct {
		name string
		path string
	}
	var attachments []attachment
	for _, question := range []string{kissflow.QuestionEvidence, kissflow.QuestionSupportLetters} {
		for _, record := range doc.Records(careerSection, question) {
			name := record[kissflow.AttachmentNameField]
			if name == "" {
				continue
			}
			path, err := s.evidence.Resolve(name)
			if err != nil {
				return nil, fmt.Errorf("evidence file %q: %w", name, err)
			}
			if !s.evidence.Exists(name) {
				continue
			}
			attachments = append(attachments, attachment{name: name, path: path})
		}
	}

	var files []kissflow.UploadedFile
	for _, a := range attachments {
		url, err := s.files.SendFile(ctx, a.path, a.name)
		if err != nil {
			return nil, fmt.Errorf("upload evidence %q: %w", a.name, err)
		}
		files = append(files, kissflow.UploadedFile{Name: a.name, URL: url})
	}
	return files, nil
}

// nomineeName pulls the nominee's name out of a mailer-produced file name,
// or falls back to the file name itself when it was renamed.
func nomineeName(fileName string) string {
	if m := nomineeNamePattern.FindStringSubmatch(fileName); m != nil {
		return m[1]
	}
	return fileName
}

// InfoRequest asks for the service configuration summary.
type InfoRequest struct{}

// InfoResult describes the running service.
type InfoResult struct {
	NominationDir string
	BucketDir     string
	WorkflowHost  string
}

// Info reports where the service reads files from and which workflow host it
// talks to.
func (s *Service) Info(InfoRequest) *InfoResult {
	return &InfoResult{
		NominationDir: s.nominations.Dir(),
		BucketDir:     s.evidence.Dir(),
		WorkflowHost:  s.client.Host(),
	}
}
