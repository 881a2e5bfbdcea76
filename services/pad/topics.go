package pad

import "gamepad-go/bus"

var (
	topicConfigPad  = bus.T("config", "pad")
	topicConfigSet  = bus.T("pad", "config", "set")
	topicResult     = bus.T("pad", "config", "result")
	topicState      = bus.T("pad", "state")
	topicStateGet   = bus.T("pad", "state", "get")
	topicLink       = bus.T("pad", "link")
	topicButtonRoot = "button"
)

// TopicState is the retained status topic.
func TopicState() bus.Topic { return topicState }

// TopicStateGet is the status request topic.
func TopicStateGet() bus.Topic { return topicStateGet }

// TopicConfigSet accepts types.ConfigSet requests.
func TopicConfigSet() bus.Topic { return topicConfigSet }

// TopicLink carries the retained types.LinkState.
func TopicLink() bus.Topic { return topicLink }

// TopicButtonEvent is where transitions of pin are published.
func TopicButtonEvent(pin int) bus.Topic { return bus.T("pad", topicButtonRoot, pin, "event") }
