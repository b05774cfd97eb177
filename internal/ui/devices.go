// Package ui implements the consumers that sit outside the capture core
// as external collaborators: the interactive device chooser and the
// terminal display of completed transactions. Neither touches flow table
// state directly; both only see the Transaction values the control loop
// already emitted, or issue StartCapture/StopCapture commands.
package ui

import (
	"sort"

	"github.com/AlecAivazis/survey/v2"
	"github.com/google/gopacket/pcap"
	"github.com/pkg/errors"

	"github.com/mccutchen/httpwatch/sets"
)

// ChooseDevice prompts the user to pick one of the capturable network
// interfaces with a survey.Select prompt.
//
// Duplicate device names (some platforms report the same physical
// interface under more than one pcap.Interface entry, e.g. an IPv4 and an
// IPv6-only view) are deduplicated with a sets.Set before they're offered
// as choices before the prompt is shown.
func ChooseDevice(devices []pcap.Interface) (string, error) {
	if len(devices) == 0 {
		return "", errors.New("ui: no capture devices available")
	}

	seen := sets.NewSet[string]()
	descriptions := make(map[string]string, len(devices))
	choices := make([]string, 0, len(devices))
	for _, d := range devices {
		if seen.Contains(d.Name) {
			continue
		}
		seen.Insert(d.Name)
		choices = append(choices, d.Name)
		descriptions[d.Name] = d.Description
	}
	sort.Strings(choices)

	var answer string
	err := survey.AskOne(&survey.Select{
		Message: "Which interface should httpwatch observe?",
		Help:    "Select the network interface to capture HTTP traffic on.",
		Options: choices,
		Description: func(value string, _ int) string {
			return descriptions[value]
		},
	}, &answer)
	if err != nil {
		return "", errors.Wrap(err, "ui: device selection canceled")
	}
	return answer, nil
}
