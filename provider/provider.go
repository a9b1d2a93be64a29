// Package provider implements translation model backends.
package provider

import "github.com/ZaguanLabs/sitetrans"

// Model is an alias to the main package interface for convenience.
type Model = sitetrans.Model

// Handle is an alias to the main package interface.
type Handle = sitetrans.Handle
