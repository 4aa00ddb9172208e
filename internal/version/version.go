package version

// Version is the current version of baylight.
// Bump it with every release that changes indicator behavior.
const Version = "0.3.0"
