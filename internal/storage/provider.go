package storage

import "pagemotion/internal/ports"

// Provider is the storage contract shared by the upload handler and the worker.
// It is an alias to ports.StorageProvider to keep call-sites simple.
type Provider = ports.StorageProvider
