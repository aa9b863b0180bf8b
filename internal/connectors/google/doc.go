// Package google provides shared infrastructure for the Google Drive
// extractor:
//   - Service factories for Drive, Sheets and Slides clients
//   - Error handling for common Google API errors (401, 403, 404, 429)
//   - Rate limiting to respect Google API quotas
//
// # Usage
//
// Clients are built from the authenticated HTTP client returned by a
// CredentialProvider:
//
//	client, err := creds.HTTPClient(ctx)
//	svc, err := google.NewDriveService(ctx, client)
//
// # OAuth2 Scopes
//
// The extractor only reads, so it requests:
//   - https://www.googleapis.com/auth/drive.readonly
//   - https://www.googleapis.com/auth/spreadsheets.readonly
//   - https://www.googleapis.com/auth/presentations.readonly
package google
