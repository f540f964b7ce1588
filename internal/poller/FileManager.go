package poller

import (
	"os"

	json "github.com/goccy/go-json"

	"gmd/internal/models"
	"gmd/internal/poller/interfaces"
	"gmd/internal/providers"
	"gmd/internal/services"
)

// FileManager persists the last good snapshot so a restart serves data
// immediately instead of waiting out the first poll.
type FileManager struct {
	coordinator services.CoordinatorServiceInterface
	compressor  interfaces.CompressorInterface
	logger      providers.Logger
}

func NewFileManager(compressor interfaces.CompressorInterface, coordinator services.CoordinatorServiceInterface, logger providers.Logger) *FileManager {
	return &FileManager{
		compressor:  compressor,
		coordinator: coordinator,
		logger:      logger,
	}
}

func (f *FileManager) SaveToFile(fileName string) error {
	snap := f.coordinator.SnapshotForPersist()
	if snap == nil {
		// Nothing fetched yet; keep whatever earlier run left on disk.
		return nil
	}

	jsonData, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	data, err := f.compressor.Compress(jsonData)
	if err != nil {
		return err
	}

	tmpFile := fileName + ".tmp"
	file, err := os.Create(tmpFile)
	if err != nil {
		return err
	}

	_, err = file.Write(data)
	if err != nil {
		file.Close()
		os.Remove(tmpFile)
		return err
	}

	if err = file.Sync(); err != nil {
		file.Close()
		os.Remove(tmpFile)
		return err
	}

	if err = file.Close(); err != nil {
		os.Remove(tmpFile)
		return err
	}

	return os.Rename(tmpFile, fileName)
}

func (f *FileManager) LoadFromFile(fileName string) error {
	data, err := os.ReadFile(fileName)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	decompressedData, err := f.compressor.Decompress(data)
	if err != nil {
		return err
	}

	var snap models.MetricsSnapshot
	if err := json.Unmarshal(decompressedData, &snap); err != nil {
		f.logger.Warnf(providers.TypeApp, "Snapshot file unreadable, starting cold: %s", err)
		return err
	}
	if snap.CapturedAt.IsZero() {
		f.logger.Warnf(providers.TypeApp, "Snapshot file has no capture time, ignoring it")
		return nil
	}

	f.coordinator.RestoreSnapshot(&snap)
	f.logger.Infof(providers.TypeApp, "Restored snapshot captured at %s", snap.CapturedAt)
	return nil
}
