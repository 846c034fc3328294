package server

// Version is the current version of problemd.
// The version follows semantic versioning (MAJOR.MINOR.PATCH).
const Version = "0.1.0"
