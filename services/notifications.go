package services

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/rs/zerolog/log"

	"closetapi/models"
)

type Notifier interface {
	Notify(ctx context.Context, token string, platform models.Platform, title, body string, customData map[string]string) error
}

type FirebaseNotifier struct {
	app *firebase.App
}

func NewFirebaseNotifier(app *firebase.App) *FirebaseNotifier {
	return &FirebaseNotifier{app: app}
}

func stringMapToInterfaceMap(stringMap map[string]string) map[string]interface{} {
	interfaceMap := make(map[string]interface{}, len(stringMap))
	for key, value := range stringMap {
		interfaceMap[key] = value
	}
	return interfaceMap
}

// BuildMessage shapes a push for the device platform. Web tokens get the plain notification.
func BuildMessage(token string, platform models.Platform, title, body string, customData map[string]string) *messaging.Message {
	message := &messaging.Message{
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data:  customData,
		Token: token,
	}
	switch platform {
	case models.PlatformIOS:
		message.APNS = &messaging.APNSConfig{
			FCMOptions: &messaging.APNSFCMOptions{
				AnalyticsLabel: "daily_outfit",
			},
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					ContentAvailable: true,
					Alert: &messaging.ApsAlert{
						Title: title,
						Body:  body,
					},
					Sound: "default",
				},
				CustomData: stringMapToInterfaceMap(customData),
			},
		}
	case models.PlatformAndroid:
		message.Android = &messaging.AndroidConfig{
			Notification: &messaging.AndroidNotification{
				Priority:  messaging.AndroidNotificationPriority(messaging.PriorityHigh),
				ChannelID: "daily-outfit",
			},
			Data: customData,
		}
	}
	return message
}

func (n *FirebaseNotifier) Notify(ctx context.Context, token string, platform models.Platform, title, body string, customData map[string]string) error {
	client, err := n.app.Messaging(ctx)
	if err != nil {
		return fmt.Errorf("init messaging client: %w", err)
	}
	id, err := client.Send(ctx, BuildMessage(token, platform, title, body, customData))
	if err != nil {
		return fmt.Errorf("send push: %w", err)
	}
	log.Ctx(ctx).Debug().Str("message_id", id).Str("platform", string(platform)).Msg("push sent")
	return nil
}
