package model

import (
	"regexp"
	"strings"
)

const (
	archiveExt          = ".zip"
	archiveSuffix       = "_Papers"
	defaultArchiveTitle = "MITAoE_Papers"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// ArchiveName derives the download file name of a batch from its first
// paper's subject and the filters the user selected.
func (x *BatchRequest) ArchiveName() string {
	var subject string
	if len(x.Papers) > 0 {
		subject = x.Papers[0].StandardSubject
		if subject == "" {
			subject = x.Papers[0].Subject
		}
	}

	name := defaultArchiveTitle
	if subject != "" {
		name = whitespaceRun.ReplaceAllString(subject, "_") + archiveSuffix
	}

	if len(x.Filters.Years) > 0 {
		name += "_" + strings.Join(x.Filters.Years, "-")
	}
	if len(x.Filters.ExamTypes) > 0 {
		name += "_" + strings.Join(x.Filters.ExamTypes, "-")
	}

	return name + archiveExt
}
