package drive

import "fmt"

// DocumentURL returns the edit link of a native document.
func DocumentURL(id string) string {
	return "https://docs.google.com/document/d/" + id + "/edit"
}

// SpreadsheetURL returns the edit link of one tab of a spreadsheet.
func SpreadsheetURL(id string, sheetID int64) string {
	return fmt.Sprintf("https://docs.google.com/spreadsheets/d/%s/edit?gid=%d", id, sheetID)
}

// PresentationURL returns the edit link of a presentation.
func PresentationURL(id string) string {
	return "https://docs.google.com/presentation/d/" + id + "/edit"
}

// FileURL returns the viewer link of an uploaded file.
func FileURL(id string) string {
	return "https://drive.google.com/file/d/" + id + "/view"
}
