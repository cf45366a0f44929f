package config

import (
	"encoding/json"

	"github.com/c360/confkit/errors"
)

// defaultTableJSON is the compiled-in configuration floor. Every recognized
// key appears here so that any other source only ever overrides, never
// introduces, the authoritative shape of the tree.
const defaultTableJSON = `{
  "core": {
    "logger": {
      "level": "info",
      "format": "json",
      "destination": "console"
    },
    "performance": {
      "maxConcurrency": 8,
      "timeoutMs": 30000,
      "enableProfiling": false
    },
    "security": {
      "sandboxed": true,
      "allowShellAccess": false,
      "trustedHosts": [],
      "maxExecutionTimeMs": 60000
    }
  },
  "interfaces": {
    "shared": {
      "defaultTimeoutMs": 30000,
      "maxRetries": 3
    },
    "terminal": {
      "enabled": true,
      "colorOutput": true
    },
    "web": {
      "enabled": false,
      "host": "localhost",
      "port": 3456,
      "https": false,
      "corsOrigins": []
    },
    "mcp": {
      "transport": "stdio",
      "http": {
        "enabled": false,
        "host": "localhost",
        "port": 3000
      }
    }
  },
  "storage": {
    "memory": {
      "backend": "sqlite",
      "maxSizeMB": 256,
      "cacheSizeMB": 64,
      "persistPath": "./data/memory"
    },
    "database": {
      "engine": "sqlite",
      "path": "./data/confkit.db",
      "maxConnections": 10,
      "timeoutMs": 5000
    }
  },
  "coordination": {
    "topology": "hierarchical",
    "maxAgents": 8,
    "maxDepth": 3,
    "strategy": "adaptive",
    "heartbeatMs": 5000
  },
  "neural": {
    "enabled": true,
    "backend": "wasm",
    "enableWASM": true,
    "enableCUDA": false,
    "modelPath": "./models"
  },
  "optimization": {
    "autoTuning": false,
    "batchSize": 32,
    "parallelExecution": true,
    "cacheEnabled": true
  }
}`

// DefaultTree returns a fresh copy of the default configuration table.
// A parse failure here means the compiled-in table itself is broken, which
// is the one unrecoverable failure of the load pipeline.
func DefaultTree() (Tree, error) {
	var t Tree
	if err := json.Unmarshal([]byte(defaultTableJSON), &t); err != nil {
		return nil, errors.WrapFatal(errors.ErrDefaultsCorrupt, "Loader", "DefaultTree", "parse default table")
	}
	return t, nil
}
