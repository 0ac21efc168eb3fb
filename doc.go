// Package models provisions pretrained model artifacts for the facegate
// face-recognition pipeline: the dlib 68-point face-landmark shape
// predictor and any further weights files declared in a catalog.
//
// The package serves two primary use cases:
//
//  1. Programmatic API via the Manager interface - Applications can use
//     NewManager to create a Manager that provides methods for ensuring,
//     verifying, and removing artifacts.
//
//  2. Embeddable CLI via NewCommand - Parent CLI tools can attach a complete
//     "models" subcommand tree to their Cobra root command, providing commands
//     like "facegate models ensure", "facegate models verify", etc.
//
// # Thread Safety
//
// The Manager interface is fully thread-safe. All methods can be called
// concurrently from multiple goroutines without external synchronization.
//
// # Integrity Verification
//
// Every artifact carries an expected digest (MD5 for the historical dlib
// entry, SHA-256 for newer ones). A provisioning run only reports success
// once the file on disk hashes to the catalog value, so a successful exit
// guarantees a usable artifact. The digest is a download-integrity check,
// not a security boundary.
//
// # Storage
//
// Artifacts are stored in platform-appropriate directories:
//   - Linux: $XDG_DATA_HOME/<app>/models/ or ~/.local/share/<app>/models/
//   - macOS: ~/Library/Application Support/<app>/models/
//   - Windows: %APPDATA%\<app>\models\
//
// The storage location can be overridden via Config.DataDir or the
// <APPNAME>_MODELS_DIR environment variable.
package models
