package engine

// Built-in adapter kinds register themselves from init().
import (
	_ "cdviz-collector/sink/debug"
	_ "cdviz-collector/sink/folder"
	_ "cdviz-collector/sink/http"
	_ "cdviz-collector/sink/kafka"
	_ "cdviz-collector/sink/nats"
	_ "cdviz-collector/source/folder"
	_ "cdviz-collector/source/kafka"
	_ "cdviz-collector/source/noop"
	_ "cdviz-collector/source/webhook"
)
