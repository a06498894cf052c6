package game

import "ignite-service/internal/config"

func defaultTestConfig() config.GameConfig {
	return config.GameConfig{GridSize: 8, CollapseEvery: 3, CollapseFraction: 0.2}
}
