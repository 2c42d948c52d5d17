// Package inmemory provides [ArrayMemory], a mutex-guarded, process-local
// implementation of [memory.Provider]. History does not survive a restart.
package inmemory
