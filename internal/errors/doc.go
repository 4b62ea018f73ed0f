// Package errors provides the structured error type used across the
// engine, content loaders, save repositories and the CLI.
//
// Errors carry a Code, a message, an optional cause and free-form meta.
// Wrapping keeps the original code so a NOT_FOUND raised by the save
// repository is still NOT_FOUND when the session service returns it:
//
//	save, err := repo.Get(ctx, id)
//	if err != nil {
//		return nil, errors.Wrapf(err, "failed to load save %s", id)
//	}
//
// The CLI turns the final code into an exit status via Code.ExitCode.
//
// Validation problems are gathered with a ValidationBuilder and surfaced
// as a single INVALID_ARGUMENT error whose meta holds every field message
// under "validation_errors".
package errors
