package connectors

import (
	"github.com/tamil-acog/aganitha-chatbot/internal/adapters/driven/process"
	"github.com/tamil-acog/aganitha-chatbot/internal/adapters/driven/transcriber"
	"github.com/tamil-acog/aganitha-chatbot/internal/connectors/filesystem"
	"github.com/tamil-acog/aganitha-chatbot/internal/connectors/google/drive"
	"github.com/tamil-acog/aganitha-chatbot/internal/connectors/media"
	"github.com/tamil-acog/aganitha-chatbot/internal/connectors/website"
	"github.com/tamil-acog/aganitha-chatbot/internal/core/domain"
	"github.com/tamil-acog/aganitha-chatbot/internal/core/ports/driven"
	"github.com/tamil-acog/aganitha-chatbot/internal/normalisers"
	"github.com/tamil-acog/aganitha-chatbot/internal/normalisers/pdf"
)

// SourceOrder is the fixed extraction and merge order.
var SourceOrder = []string{website.Name, drive.Name, media.Name, filesystem.Name}

// Dependencies are the shared collaborators handed to extractors.
// Nil fields are filled with the production defaults.
type Dependencies struct {
	Runner      driven.CommandRunner
	Normalisers driven.NormaliserRegistry
	Transcriber driven.Transcriber

	// Credentials is required only when the drive source is enabled.
	Credentials driven.CredentialProvider

	// DriveAPI bypasses Credentials. Used by tests.
	DriveAPI drive.API
}

// Factory creates extractors from a pipeline configuration.
type Factory struct {
	deps Dependencies
}

// NewFactory creates a Factory.
func NewFactory(deps Dependencies) *Factory {
	if deps.Runner == nil {
		deps.Runner = process.NewRunner()
	}
	if deps.Normalisers == nil {
		deps.Normalisers = normalisers.NewDefaultRegistry(deps.Runner)
	}
	if deps.Transcriber == nil {
		deps.Transcriber = transcriber.NewWhisper(deps.Runner)
	}
	return &Factory{deps: deps}
}

// Build returns the enabled extractors in SourceOrder.
func (f *Factory) Build(cfg domain.PipelineConfig) ([]driven.Extractor, error) {
	src := cfg.Sources
	var out []driven.Extractor

	if src.URLFile != "" {
		e, err := website.New(website.Config{URLFile: src.URLFile})
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}

	if src.DriveEnabled() {
		e, err := f.buildDrive(cfg)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}

	if src.VideoEnabled {
		e, err := media.New(media.Config{
			SourceDir:     src.MediaDir,
			AudioDir:      src.AudioDir,
			WaitForMarker: cfg.Pipeline.Concurrent && src.DriveEnabled(),
		}, f.deps.Runner, f.deps.Transcriber)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}

	if src.DocsDir != "" {
		e, err := filesystem.New(src.DocsDir, f.deps.Normalisers)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}

	return out, nil
}

func (f *Factory) buildDrive(cfg domain.PipelineConfig) (*drive.Extractor, error) {
	src := cfg.Sources
	driveCfg := drive.Config{
		FolderID:    src.DriveFolderID,
		DocumentIDs: src.DriveDocumentIDs,
		FileIDs:     src.DriveFileIDs,
		StagingDir:  src.MediaDir,
		MaxDepth:    src.DriveMaxDepth,
	}
	opts := []drive.Option{
		drive.WithNormalisers(f.deps.Normalisers),
		drive.WithPageSplitter(pdf.NewWithRunner(f.deps.Runner)),
	}

	if f.deps.DriveAPI != nil {
		return drive.New(driveCfg, f.deps.DriveAPI, opts...)
	}
	return drive.NewWithCredentials(driveCfg, f.deps.Credentials, opts...)
}
